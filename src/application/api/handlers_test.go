package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"time"

	"mediagrab-be-server/src/application/api"
	"mediagrab-be-server/src/application/auth"
	"mediagrab-be-server/src/application/batch"
	"mediagrab-be-server/src/application/config"
	"mediagrab-be-server/src/application/fetch"
	"mediagrab-be-server/src/application/infocache"
	"mediagrab-be-server/src/application/integration_test/dummy"
	"mediagrab-be-server/src/application/platform"
	"mediagrab-be-server/src/application/records/entity"
	"mediagrab-be-server/src/application/video"
	"mediagrab-be-server/src/lib/env"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

var _ = Describe("API", func() {
	var (
		recordStore   *dummy.RecordStore
		publisher     *dummy.Publisher
		ytdlpExecutor *dummy.YTDLPExecutor

		fileServer *httptest.Server
		apiServer  *httptest.Server

		aliceToken string
		bobToken   string
	)

	metadataJSON := []byte(`{
		"title": "A Cooking Show",
		"duration": 93.5,
		"thumbnail": "https://cdn.example.com/thumb.jpg",
		"uploader": "chef",
		"view_count": 12000,
		"formats": [
			{"format_id": "22", "ext": "mp4", "height": 720, "vcodec": "avc1", "acodec": "mp4a", "filesize": 5000}
		]
	}`)

	BeforeEach(func() {
		aliceToken = "token-a"
		bobToken = "token-b"

		recordStore = dummy.NewDummyRecordStore()
		publisher = dummy.NewDummyPublisher()
		ytdlpExecutor = dummy.NewDummyYTDLPExecutor()

		fileServer = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "text/plain")
			_, _ = w.Write([]byte("file contents from " + r.URL.Path))
		}))

		cfg := &config.Config{
			MaxFileSizeMB:   1,
			DownloadTimeout: 5 * time.Second,
			MaxConcurrent:   3,
			WorkingDir:      workingDir,
		}

		fetcher, err := fetch.NewFetcher(workingDir, cfg.MaxFileBytes(), cfg.DownloadTimeout)
		Expect(err).NotTo(HaveOccurred())

		general, err := video.NewYTDLPStrategy("/bin/yt-dlp", workingDir, ytdlpExecutor)
		Expect(err).NotTo(HaveOccurred())

		transcoder, err := video.NewFFmpegTranscoder("/bin/ffmpeg", workingDir, dummy.NewDummyFFmpegExecutor())
		Expect(err).NotTo(HaveOccurred())

		classifier := platform.NewClassifier()

		// the general strategy covers everything in tests, no native client
		picker := func(_ string) []video.Strategy {
			return []video.Strategy{general}
		}
		extractor := video.NewExtractor(picker, transcoder)

		handler := api.NewHandler(
			batch.NewOrchestrator(recordStore, publisher),
			fetcher,
			extractor,
			classifier,
			recordStore,
			infocache.NoopCache{},
			cfg,
			env.Development,
		)

		verifier, err := auth.NewStaticVerifier(fmt.Sprintf("%s:alice,%s:bob", aliceToken, bobToken))
		Expect(err).NotTo(HaveOccurred())

		apiServer = httptest.NewServer(api.NewRouter(handler, verifier, 1000, 1000))
	})

	AfterEach(func() {
		fileServer.Close()
		apiServer.Close()
	})

	doRequest := func(method string, path string, token string, body interface{}) *http.Response {
		var reader io.Reader
		if body != nil {
			jsonBytes, err := json.Marshal(body)
			Expect(err).NotTo(HaveOccurred())
			reader = bytes.NewReader(jsonBytes)
		}

		req, err := http.NewRequest(method, apiServer.URL+path, reader)
		Expect(err).NotTo(HaveOccurred())
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}

		resp, err := http.DefaultClient.Do(req)
		Expect(err).NotTo(HaveOccurred())
		return resp
	}

	decodeBody := func(resp *http.Response, out interface{}) {
		defer resp.Body.Close()
		err := json.NewDecoder(resp.Body).Decode(out)
		Expect(err).NotTo(HaveOccurred())
	}

	Describe("Authentication", func() {
		It("rejects requests without credentials", func() {
			resp := doRequest(http.MethodPost, "/api/download", "", map[string]string{"url": fileServer.URL})
			Expect(resp.StatusCode).To(Equal(http.StatusUnauthorized))
		})

		It("rejects requests with an unknown token", func() {
			resp := doRequest(http.MethodPost, "/api/download", "nope", map[string]string{"url": fileServer.URL})
			Expect(resp.StatusCode).To(Equal(http.StatusUnauthorized))
		})

		It("accepts the token from a cookie", func() {
			req, err := http.NewRequest(http.MethodGet, apiServer.URL+"/api/records", nil)
			Expect(err).NotTo(HaveOccurred())
			req.AddCookie(&http.Cookie{Name: "token", Value: aliceToken})

			resp, err := http.DefaultClient.Do(req)
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
		})

		It("leaves the health check open", func() {
			resp, err := http.Get(apiServer.URL + "/health")
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
		})
	})

	Describe("Single download", func() {
		It("streams the file back as an attachment", func() {
			resp := doRequest(http.MethodPost, "/api/download", aliceToken, map[string]string{
				"url": fileServer.URL + "/report.txt",
			})
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			Expect(resp.Header.Get("Content-Disposition")).To(ContainSubstring(`filename="report.txt"`))

			defer resp.Body.Close()
			contents, err := io.ReadAll(resp.Body)
			Expect(err).NotTo(HaveOccurred())
			Expect(string(contents)).To(Equal("file contents from /report.txt"))
		})

		It("records the download under the calling user", func() {
			resp := doRequest(http.MethodPost, "/api/download", aliceToken, map[string]string{
				"url": fileServer.URL + "/report.txt",
			})
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			resp.Body.Close()

			records, err := recordStore.FindRecords(context.Background(), entity.RecordFilter{UserID: "alice"}, entity.Pagination{})
			Expect(err).NotTo(HaveOccurred())
			Expect(records).To(HaveLen(1))
			Expect(records[0].Status).To(Equal(entity.CompletedStatus))
		})

		It("rejects a non-http URL", func() {
			resp := doRequest(http.MethodPost, "/api/download", aliceToken, map[string]string{
				"url": "ftp://example.com/file",
			})
			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
		})

		It("surfaces a failed download as unprocessable", func() {
			fileServer.Close()

			resp := doRequest(http.MethodPost, "/api/download", aliceToken, map[string]string{
				"url": fileServer.URL + "/report.txt",
			})
			Expect(resp.StatusCode).To(Equal(http.StatusUnprocessableEntity))
		})
	})

	Describe("Batch download", func() {
		It("returns per-item outcomes in input order", func() {
			urls := []string{
				fileServer.URL + "/a.txt",
				fileServer.URL + "/b.txt",
				fileServer.URL + "/c.txt",
			}

			resp := doRequest(http.MethodPost, "/api/download/batch", aliceToken, map[string]interface{}{
				"urls": urls,
			})
			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			var outcome batch.Outcome
			decodeBody(resp, &outcome)

			Expect(outcome.Results).To(HaveLen(3))
			for i, result := range outcome.Results {
				Expect(result.SourceURL).To(Equal(urls[i]))
				Expect(result.Success).To(BeTrue())
			}
			Expect(outcome.Summary.Total).To(Equal(3))
			Expect(outcome.Summary.Successful).To(Equal(3))
		})

		It("rejects an oversized batch", func() {
			urls := []string{}
			for i := 0; i < 11; i++ {
				urls = append(urls, fmt.Sprintf("%s/file-%d.txt", fileServer.URL, i))
			}

			resp := doRequest(http.MethodPost, "/api/download/batch", aliceToken, map[string]interface{}{
				"urls": urls,
			})
			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
		})

		It("rejects an empty batch", func() {
			resp := doRequest(http.MethodPost, "/api/download/batch", aliceToken, map[string]interface{}{
				"urls": []string{},
			})
			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
		})
	})

	Describe("Video endpoints", func() {
		var videoURL string

		BeforeEach(func() {
			videoURL = "https://www.tiktok.com/@someone/video/1"
			ytdlpExecutor.AddVideo(videoURL, metadataJSON, []byte("video bytes"))
		})

		It("reports a non-platform URL as not social media", func() {
			resp := doRequest(http.MethodPost, "/api/video/check", aliceToken, map[string]string{
				"url": fileServer.URL + "/video.mp4",
			})
			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			var body struct {
				IsSocialMedia bool `json:"isSocialMedia"`
			}
			decodeBody(resp, &body)
			Expect(body.IsSocialMedia).To(BeFalse())
		})

		It("returns platform and metadata for a recognized URL", func() {
			resp := doRequest(http.MethodPost, "/api/video/check", aliceToken, map[string]string{
				"url": videoURL,
			})
			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			var body struct {
				IsSocialMedia bool   `json:"isSocialMedia"`
				Platform      string `json:"platform"`
				Info          struct {
					Title string `json:"title"`
				} `json:"info"`
			}
			decodeBody(resp, &body)

			Expect(body.IsSocialMedia).To(BeTrue())
			Expect(body.Platform).To(Equal("tiktok"))
			Expect(body.Info.Title).To(Equal("A Cooking Show"))
		})

		It("lists formats for a recognized URL", func() {
			resp := doRequest(http.MethodGet, "/api/video/formats?url="+videoURL, aliceToken, nil)
			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			var body struct {
				Title    string                               `json:"title"`
				Formats  map[string][]map[string]interface{} `json:"formats"`
				Duration float64                              `json:"duration"`
			}
			decodeBody(resp, &body)

			Expect(body.Title).To(Equal("A Cooking Show"))
			Expect(body.Formats).To(HaveKey("720p"))
			Expect(body.Duration).To(BeNumerically("~", 93.5, 0.01))
		})

		It("rejects format listing for an unrecognized URL", func() {
			resp := doRequest(http.MethodGet, "/api/video/formats?url=https://example.com/v", aliceToken, nil)
			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
		})

		It("downloads a video and streams it back", func() {
			resp := doRequest(http.MethodPost, "/api/video/download", aliceToken, map[string]string{
				"url": videoURL,
			})
			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			defer resp.Body.Close()
			contents, err := io.ReadAll(resp.Body)
			Expect(err).NotTo(HaveOccurred())
			Expect(string(contents)).To(Equal("video bytes"))
		})

		It("rejects a video download for a non-platform URL", func() {
			resp := doRequest(http.MethodPost, "/api/video/download", aliceToken, map[string]string{
				"url": "https://example.com/plain.mp4",
			})
			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
		})
	})

	Describe("Records endpoints", func() {
		seedRecord := func(userID string, status entity.Status, size int64) entity.DownloadRecord {
			record := entity.NewPendingRecord(userID, "https://example.com/file")
			record.Status = status
			record.FileSize = size
			_, err := recordStore.CreateRecord(context.Background(), record)
			Expect(err).NotTo(HaveOccurred())
			return record
		}

		It("lists only the calling user's records", func() {
			seedRecord("alice", entity.CompletedStatus, 100)
			seedRecord("alice", entity.FailedStatus, 0)
			seedRecord("bob", entity.CompletedStatus, 100)

			resp := doRequest(http.MethodGet, "/api/records", aliceToken, nil)
			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			var body struct {
				Records []entity.DownloadRecord `json:"records"`
				Count   int                     `json:"count"`
			}
			decodeBody(resp, &body)

			Expect(body.Count).To(Equal(2))
			for _, record := range body.Records {
				Expect(record.UserID).To(Equal("alice"))
			}
		})

		It("filters records by status", func() {
			seedRecord("alice", entity.CompletedStatus, 100)
			seedRecord("alice", entity.FailedStatus, 0)

			resp := doRequest(http.MethodGet, "/api/records?status=failed", aliceToken, nil)
			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			var body struct {
				Records []entity.DownloadRecord `json:"records"`
			}
			decodeBody(resp, &body)

			Expect(body.Records).To(HaveLen(1))
			Expect(body.Records[0].Status).To(Equal(entity.FailedStatus))
		})

		It("rejects an unknown status filter", func() {
			resp := doRequest(http.MethodGet, "/api/records?status=sideways", aliceToken, nil)
			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
		})

		It("aggregates stats by status with size sums", func() {
			seedRecord("alice", entity.CompletedStatus, 100)
			seedRecord("alice", entity.CompletedStatus, 250)
			seedRecord("alice", entity.FailedStatus, 0)

			resp := doRequest(http.MethodGet, "/api/records/stats", aliceToken, nil)
			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			var body struct {
				Stats []entity.StatusStat `json:"stats"`
			}
			decodeBody(resp, &body)

			statByStatus := map[entity.Status]entity.StatusStat{}
			for _, stat := range body.Stats {
				statByStatus[stat.Status] = stat
			}

			Expect(statByStatus[entity.CompletedStatus].Count).To(Equal(int64(2)))
			Expect(statByStatus[entity.CompletedStatus].TotalSize).To(Equal(int64(350)))
			Expect(statByStatus[entity.FailedStatus].Count).To(Equal(int64(1)))
		})

		It("deletes the caller's own record", func() {
			record := seedRecord("alice", entity.CompletedStatus, 100)

			resp := doRequest(http.MethodDelete, "/api/records/"+record.ID, aliceToken, nil)
			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			_, err := recordStore.GetRecord(context.Background(), record.ID)
			Expect(err).To(HaveOccurred())
		})

		It("refuses to delete another user's record", func() {
			record := seedRecord("bob", entity.CompletedStatus, 100)

			resp := doRequest(http.MethodDelete, "/api/records/"+record.ID, aliceToken, nil)
			Expect(resp.StatusCode).To(Equal(http.StatusNotFound))

			_, err := recordStore.GetRecord(context.Background(), record.ID)
			Expect(err).NotTo(HaveOccurred())
		})

		It("404s on a record that doesn't exist", func() {
			resp := doRequest(http.MethodDelete, "/api/records/no-such-record", aliceToken, nil)
			Expect(resp.StatusCode).To(Equal(http.StatusNotFound))
		})
	})

	Describe("Rate limiting", func() {
		It("throttles a user who exceeds the burst", func() {
			verifier, err := auth.NewStaticVerifier(aliceToken + ":alice")
			Expect(err).NotTo(HaveOccurred())

			handler := api.NewHandler(
				batch.NewOrchestrator(recordStore, publisher),
				fetch.Fetcher{},
				video.Extractor{},
				platform.NewClassifier(),
				recordStore,
				infocache.NoopCache{},
				&config.Config{MaxConcurrent: 3},
				env.Development,
			)

			throttledServer := httptest.NewServer(api.NewRouter(handler, verifier, 1, 2))
			defer throttledServer.Close()

			statuses := []int{}
			for i := 0; i < 4; i++ {
				req, reqErr := http.NewRequest(http.MethodGet, throttledServer.URL+"/api/records", nil)
				Expect(reqErr).NotTo(HaveOccurred())
				req.Header.Set("Authorization", "Bearer "+aliceToken)

				resp, doErr := http.DefaultClient.Do(req)
				Expect(doErr).NotTo(HaveOccurred())
				resp.Body.Close()
				statuses = append(statuses, resp.StatusCode)
			}

			Expect(statuses).To(ContainElement(http.StatusTooManyRequests))
		})
	})
})
