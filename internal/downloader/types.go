package downloader

// Info mirrors the fields of yt-dlp --dump-json output that we use.
type Info struct {
	ID             string  `json:"id"`
	Title          string  `json:"title"`
	Uploader       string  `json:"uploader"`
	Extractor      string  `json:"extractor_key"`
	Duration       float64 `json:"duration"`
	Ext            string  `json:"ext"`
	Filesize       int64   `json:"filesize"`
	FilesizeApprox int64   `json:"filesize_approx"`
	WebpageURL     string  `json:"webpage_url"`
}

// EstimatedSize returns the exact size when yt-dlp knows it, the
// approximate one otherwise, and 0 when neither is reported.
func (i Info) EstimatedSize() int64 {
	if i.Filesize > 0 {
		return i.Filesize
	}
	if i.FilesizeApprox > 0 {
		return i.FilesizeApprox
	}
	return 0
}
