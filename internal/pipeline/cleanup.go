package pipeline

import (
	"fmt"

	"funlight/internal/downloader"
	"funlight/internal/progress"
	"funlight/internal/util"
)

// cleanup removes partial and fragment files yt-dlp left in dir and
// reports each deletion. Failures are logged, never fatal.
func (s *Service) cleanup(dir string, rep progress.Reporter, jobID string) {
	removed, err := util.RemoveMatching(dir, downloader.IsResidual)
	for _, p := range removed {
		rep.Update(progress.Update{
			JobID:   jobID,
			Stage:   progress.StageCleanup,
			Percent: -1,
			Message: fmt.Sprintf("Deleted temporary file: %s", p),
		})
	}
	if err != nil {
		s.logger.Warn("cleanup incomplete", "job_id", jobID, "dir", dir, "error", err)
	}
}
