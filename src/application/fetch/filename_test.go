package fetch_test

import (
	"net/http"
	"strings"

	"mediagrab-be-server/src/application/fetch"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

var _ = Describe("DeriveFileName", func() {
	It("ranks preferred name above the content disposition header", func() {
		header := http.Header{}
		header.Set("Content-Disposition", `attachment; filename="from-header.txt"`)

		name := fetch.DeriveFileName("mine.txt", header, "http://example.com/from-url.txt", "text/plain")
		Expect(name).To(Equal("mine.txt"))
	})

	It("ranks the content disposition header above the URL path", func() {
		header := http.Header{}
		header.Set("Content-Disposition", `attachment; filename="from-header.txt"`)

		name := fetch.DeriveFileName("", header, "http://example.com/from-url.txt", "text/plain")
		Expect(name).To(Equal("from-header.txt"))
	})

	It("falls back to the last URL path segment", func() {
		name := fetch.DeriveFileName("", http.Header{}, "http://example.com/docs/report.pdf", "application/pdf")
		Expect(name).To(Equal("report.pdf"))
	})

	It("drops the query string and lowercases the extension of a URL-derived name", func() {
		name := fetch.DeriveFileName("", http.Header{}, "https://x.test/report.PDF?x=1", "")
		Expect(name).To(Equal("report.pdf"))
	})

	It("generates a name when nothing else is available", func() {
		name := fetch.DeriveFileName("", http.Header{}, "http://example.com/", "")
		Expect(strings.HasPrefix(name, "download-")).To(BeTrue())
	})

	It("ignores a malformed content disposition header", func() {
		header := http.Header{}
		header.Set("Content-Disposition", "total garbage;;;=")

		name := fetch.DeriveFileName("", header, "http://example.com/fallback.txt", "text/plain")
		Expect(name).To(Equal("fallback.txt"))
	})

	It("lowercases the extension", func() {
		name := fetch.DeriveFileName("report.PDF", http.Header{}, "", "")
		Expect(name).To(Equal("report.pdf"))
	})

	It("appends an extension from the content type when the name has none", func() {
		name := fetch.DeriveFileName("archive", http.Header{}, "", "application/zip")
		Expect(name).To(Equal("archive.zip"))
	})

	It("leaves the name alone when the content type is unknown", func() {
		name := fetch.DeriveFileName("mystery", http.Header{}, "", "application/x-who-knows")
		Expect(name).To(Equal("mystery"))
	})
})

var _ = Describe("SanitizeFileName", func() {
	It("replaces spaces with underscores", func() {
		Expect(fetch.SanitizeFileName("my holiday photo.jpg")).To(Equal("my_holiday_photo.jpg"))
	})

	It("strips path separators and shell-hostile characters", func() {
		Expect(fetch.SanitizeFileName(`..\..\evil:*?"<>|name/file.txt`)).To(Equal("....evilnamefile.txt"))
	})

	It("leaves benign names untouched", func() {
		Expect(fetch.SanitizeFileName("notes-2024.txt")).To(Equal("notes-2024.txt"))
	})
})
