package video_test

import (
	"context"
	"os"

	"mediagrab-be-server/src/application/integration_test/dummy"
	"mediagrab-be-server/src/application/video"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

var _ = Describe("YTDLPStrategy", func() {
	var (
		executor *dummy.YTDLPExecutor
		strategy video.YTDLPStrategy

		sourceURL string
	)

	metadataJSON := []byte(`{
		"title": "A Cooking Show",
		"duration": 93.5,
		"thumbnail": "https://cdn.example.com/thumb.jpg",
		"uploader": "chef",
		"view_count": 12000,
		"categories": ["Food"],
		"description": "dinner time",
		"formats": [
			{"format_id": "18", "ext": "mp4", "height": 360, "vcodec": "avc1", "acodec": "mp4a", "filesize": 1000},
			{"format_id": "22", "ext": "mp4", "height": 720, "vcodec": "avc1", "acodec": "mp4a", "filesize": 5000},
			{"format_id": "140", "ext": "m4a", "height": 0, "vcodec": "none", "acodec": "mp4a", "filesize": 800}
		]
	}`)

	BeforeEach(func() {
		executor = dummy.NewDummyYTDLPExecutor()
		sourceURL = "https://www.tiktok.com/@someone/video/1"
		executor.AddVideo(sourceURL, metadataJSON, []byte("binary video bytes"))

		var err error
		strategy, err = video.NewYTDLPStrategy("/bin/yt-dlp", workingDir, executor)
		Expect(err).NotTo(HaveOccurred())
	})

	Describe("Info", func() {
		It("parses the metadata JSON", func() {
			info, err := strategy.Info(context.Background(), sourceURL)
			Expect(err).NotTo(HaveOccurred())

			Expect(info.Title).To(Equal("A Cooking Show"))
			Expect(info.Duration.Seconds()).To(BeNumerically("~", 93.5, 0.01))
			Expect(info.Thumbnail).To(Equal("https://cdn.example.com/thumb.jpg"))
			Expect(info.Uploader).To(Equal("chef"))
			Expect(info.ViewCount).To(Equal(int64(12000)))
		})

		It("errors for an unknown URL", func() {
			_, err := strategy.Info(context.Background(), "https://www.tiktok.com/@someone/video/999")
			Expect(err).To(HaveOccurred())
		})

		It("errors when the binary is unavailable", func() {
			executor.Unavailable = true

			_, err := strategy.Info(context.Background(), sourceURL)
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("ListFormats", func() {
		It("groups video formats by resolution", func() {
			listing, err := strategy.ListFormats(context.Background(), sourceURL)
			Expect(err).NotTo(HaveOccurred())

			Expect(listing.ByResolution).To(HaveKey("360p"))
			Expect(listing.ByResolution).To(HaveKey("720p"))
		})

		It("separates out audio-only formats", func() {
			listing, err := strategy.ListFormats(context.Background(), sourceURL)
			Expect(err).NotTo(HaveOccurred())

			Expect(listing.AudioOnly).To(HaveLen(1))
			Expect(listing.AudioOnly[0].Extension).To(Equal("m4a"))
			Expect(listing.AudioOnly[0].AudioOnly).To(BeTrue())
		})

		It("picks the highest resolution as best", func() {
			listing, err := strategy.ListFormats(context.Background(), sourceURL)
			Expect(err).NotTo(HaveOccurred())

			Expect(listing.Best.Height).To(Equal(720))
		})
	})

	Describe("Download", func() {
		It("produces a file in the temp dir with the video contents", func() {
			download, err := strategy.Download(context.Background(), sourceURL, video.DownloadOptions{})
			Expect(err).NotTo(HaveOccurred())

			contents, err := os.ReadFile(download.FilePath)
			Expect(err).NotTo(HaveOccurred())
			Expect(string(contents)).To(Equal("binary video bytes"))

			Expect(download.Size).To(Equal(int64(len("binary video bytes"))))
			Expect(download.Info.Title).To(Equal("A Cooking Show"))

			_ = os.Remove(download.FilePath)
		})

		It("names the file after the sanitized title by default", func() {
			download, err := strategy.Download(context.Background(), sourceURL, video.DownloadOptions{})
			Expect(err).NotTo(HaveOccurred())

			Expect(download.FileName).To(Equal("A_Cooking_Show.mp4"))

			_ = os.Remove(download.FilePath)
		})

		It("honors a caller-supplied file name", func() {
			download, err := strategy.Download(context.Background(), sourceURL, video.DownloadOptions{
				FileName: "dinner.mp4",
			})
			Expect(err).NotTo(HaveOccurred())

			Expect(download.FileName).To(Equal("dinner.mp4"))

			_ = os.Remove(download.FilePath)
		})

		It("errors for an unknown URL without leaving files around", func() {
			_, err := strategy.Download(context.Background(), "https://www.tiktok.com/@someone/video/999", video.DownloadOptions{})
			Expect(err).To(HaveOccurred())
		})
	})
})
