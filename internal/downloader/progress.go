package downloader

import (
	"bufio"
	"io"
	"regexp"
	"strconv"
)

var percentRe = regexp.MustCompile(`(\d{1,3})(?:\.\d+)?%`)

// parsePercent extracts a download percentage from one line of yt-dlp output.
// Returns -1 when the line carries no percentage.
func parsePercent(line string) int {
	m := percentRe.FindStringSubmatch(line)
	if m == nil {
		return -1
	}
	pct, err := strconv.Atoi(m[1])
	if err != nil || pct < 0 || pct > 100 {
		return -1
	}
	return pct
}

// progressReader scans process output line by line and reports percentages
// through the callback. Reported values only ever increase; yt-dlp restarts
// its counter for each fragment and post-processing step.
type progressReader struct {
	onProgress func(percent int)
	last       int
}

func newProgressReader(onProgress func(int)) *progressReader {
	return &progressReader{onProgress: onProgress, last: -1}
}

func (p *progressReader) consume(r io.Reader) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		p.line(scanner.Text())
	}
}

func (p *progressReader) line(s string) {
	pct := parsePercent(s)
	if pct <= p.last {
		return
	}
	p.last = pct
	if p.onProgress != nil {
		p.onProgress(pct)
	}
}
