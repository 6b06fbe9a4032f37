package fetch_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"time"

	"mediagrab-be-server/src/application/fetch"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

var _ = Describe("Fetcher", func() {
	var (
		fetcher fetch.Fetcher
		server  *httptest.Server
		handler http.HandlerFunc
	)

	BeforeEach(func() {
		handler = func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "text/plain")
			_, _ = w.Write([]byte("hello there"))
		}
	})

	JustBeforeEach(func() {
		server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			handler(w, r)
		}))

		var err error
		fetcher, err = fetch.NewFetcher(workingDir, 1024, 5*time.Second)
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		server.Close()
	})

	tempFileCount := func() int {
		entries, err := os.ReadDir(filepath.Join(workingDir, "tmp"))
		Expect(err).NotTo(HaveOccurred())
		return len(entries)
	}

	Describe("Happy path", func() {
		It("saves the body to a temp file", func() {
			result, err := fetcher.Fetch(context.Background(), fetch.Request{URL: server.URL + "/notes.txt"})
			Expect(err).NotTo(HaveOccurred())

			contents, err := os.ReadFile(result.FilePath)
			Expect(err).NotTo(HaveOccurred())
			Expect(string(contents)).To(Equal("hello there"))

			Expect(result.FileName).To(Equal("notes.txt"))
			Expect(result.Size).To(Equal(int64(len("hello there"))))
			Expect(result.ContentType).To(Equal("text/plain"))

			_ = os.Remove(result.FilePath)
		})

		It("gives concurrent fetches distinct temp files", func() {
			first, err := fetcher.Fetch(context.Background(), fetch.Request{URL: server.URL + "/a.txt"})
			Expect(err).NotTo(HaveOccurred())
			second, err := fetcher.Fetch(context.Background(), fetch.Request{URL: server.URL + "/a.txt"})
			Expect(err).NotTo(HaveOccurred())

			Expect(first.FilePath).NotTo(Equal(second.FilePath))

			_ = os.Remove(first.FilePath)
			_ = os.Remove(second.FilePath)
		})
	})

	Describe("Non-200 responses", func() {
		BeforeEach(func() {
			handler = func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "gone", http.StatusNotFound)
			}
		})

		It("fails and mentions the status code", func() {
			_, err := fetcher.Fetch(context.Background(), fetch.Request{URL: server.URL})
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("404"))
		})

		It("leaves no temp file behind", func() {
			before := tempFileCount()
			_, err := fetcher.Fetch(context.Background(), fetch.Request{URL: server.URL})
			Expect(err).To(HaveOccurred())
			Expect(tempFileCount()).To(Equal(before))
		})
	})

	Describe("Redirected responses", func() {
		BeforeEach(func() {
			handler = func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path == "/final" {
					_, _ = w.Write([]byte("after redirect"))
					return
				}
				http.Redirect(w, r, "/final", http.StatusFound)
			}
		})

		It("follows the redirect to the final document", func() {
			result, err := fetcher.Fetch(context.Background(), fetch.Request{URL: server.URL + "/start"})
			Expect(err).NotTo(HaveOccurred())

			contents, err := os.ReadFile(result.FilePath)
			Expect(err).NotTo(HaveOccurred())
			Expect(string(contents)).To(Equal("after redirect"))

			_ = os.Remove(result.FilePath)
		})
	})

	Describe("Disallowed content types", func() {
		BeforeEach(func() {
			handler = func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "font/woff2")
				_, _ = w.Write([]byte("not welcome"))
			}
		})

		It("rejects the download", func() {
			_, err := fetcher.Fetch(context.Background(), fetch.Request{URL: server.URL})
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("Unsupported content type"))
		})
	})

	Describe("Size ceiling", func() {
		Describe("declared up front", func() {
			BeforeEach(func() {
				handler = func(w http.ResponseWriter, r *http.Request) {
					w.Header().Set("Content-Type", "application/octet-stream")
					w.Header().Set("Content-Length", "4096")
					_, _ = w.Write(make([]byte, 4096))
				}
			})

			It("fails before reading the body", func() {
				before := tempFileCount()
				_, err := fetcher.Fetch(context.Background(), fetch.Request{URL: server.URL})
				Expect(err).To(HaveOccurred())
				Expect(err.Error()).To(ContainSubstring("exceeds the allowed maximum"))
				Expect(tempFileCount()).To(Equal(before))
			})
		})

		Describe("hidden behind a chunked response", func() {
			BeforeEach(func() {
				handler = func(w http.ResponseWriter, r *http.Request) {
					w.Header().Set("Content-Type", "application/octet-stream")
					// no content-length, flushed in chunks
					flusher := w.(http.Flusher)
					chunk := make([]byte, 512)
					for i := 0; i < 10; i++ {
						_, _ = w.Write(chunk)
						flusher.Flush()
					}
				}
			})

			It("still enforces the ceiling mid-stream and removes the partial file", func() {
				before := tempFileCount()
				_, err := fetcher.Fetch(context.Background(), fetch.Request{URL: server.URL})
				Expect(err).To(HaveOccurred())
				Expect(err.Error()).To(ContainSubstring("exceeds the allowed maximum"))
				Expect(tempFileCount()).To(Equal(before))
			})
		})

		Describe("per-request override", func() {
			BeforeEach(func() {
				handler = func(w http.ResponseWriter, r *http.Request) {
					w.Header().Set("Content-Type", "application/octet-stream")
					_, _ = w.Write(make([]byte, 2048))
				}
			})

			It("honors a larger per-request limit", func() {
				result, err := fetcher.Fetch(context.Background(), fetch.Request{
					URL:      server.URL,
					MaxBytes: 4096,
				})
				Expect(err).NotTo(HaveOccurred())
				Expect(result.Size).To(Equal(int64(2048)))

				_ = os.Remove(result.FilePath)
			})
		})
	})

	Describe("Timeouts", func() {
		BeforeEach(func() {
			handler = func(w http.ResponseWriter, r *http.Request) {
				time.Sleep(2 * time.Second)
				_, _ = w.Write([]byte("too late"))
			}
		})

		It("reports a timeout in plain words", func() {
			_, err := fetcher.Fetch(context.Background(), fetch.Request{
				URL:     server.URL,
				Timeout: 100 * time.Millisecond,
			})
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("timed out"))
		})
	})

	Describe("Unresolvable hosts", func() {
		It("reports the DNS failure in plain words", func() {
			_, err := fetcher.Fetch(context.Background(), fetch.Request{
				URL: "http://no-such-host.invalid/file.txt",
			})
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("Could not resolve"))
		})
	})

	Describe("Filename preference", func() {
		It("prefers the caller-supplied name over everything else", func() {
			result, err := fetcher.Fetch(context.Background(), fetch.Request{
				URL:           server.URL + "/server-name.txt",
				PreferredName: "my name.txt",
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(result.FileName).To(Equal("my_name.txt"))

			_ = os.Remove(result.FilePath)
		})

		Describe("with a content disposition header", func() {
			BeforeEach(func() {
				handler = func(w http.ResponseWriter, r *http.Request) {
					w.Header().Set("Content-Type", "text/plain")
					w.Header().Set("Content-Disposition", `attachment; filename="a.txt"`)
					_, _ = w.Write([]byte("body"))
				}
			})

			It("uses the header name when the caller supplies none", func() {
				result, err := fetcher.Fetch(context.Background(), fetch.Request{
					URL: server.URL + "/url-name.bin",
				})
				Expect(err).NotTo(HaveOccurred())
				Expect(result.FileName).To(Equal("a.txt"))

				_ = os.Remove(result.FilePath)
			})
		})

		Describe("with nothing to go on", func() {
			BeforeEach(func() {
				handler = func(w http.ResponseWriter, r *http.Request) {
					w.Header().Set("Content-Type", "application/pdf")
					_, _ = w.Write([]byte("%PDF"))
				}
			})

			It("generates a name with an extension from the content type", func() {
				result, err := fetcher.Fetch(context.Background(), fetch.Request{
					URL: server.URL + "/",
				})
				Expect(err).NotTo(HaveOccurred())
				Expect(strings.HasPrefix(result.FileName, "download-")).To(BeTrue())
				Expect(filepath.Ext(result.FileName)).To(Equal(".pdf"))

				_ = os.Remove(result.FilePath)
			})
		})
	})
})
