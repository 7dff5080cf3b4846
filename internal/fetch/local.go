package fetch

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/streamvault/mediagate/internal/pathmap"
)

// serveLocal serves a file from the local content root with native HTTP range
// semantics: a bytes=start-end header yields 206 with Content-Range and a
// Content-Length covering exactly the requested slice.
func (f *Fetcher) serveLocal(localPath, contentPath, rangeHeader string) (*Result, error) {
	file, err := os.Open(localPath)
	if err != nil {
		return nil, err
	}
	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, err
	}
	if info.IsDir() {
		file.Close()
		return nil, fmt.Errorf("%s is a directory", localPath)
	}
	size := info.Size()

	header := http.Header{}
	header.Set("Content-Type", pathmap.ContentType(contentPath))
	header.Set("Accept-Ranges", "bytes")
	header.Set("Cache-Control", "public, max-age=3600")

	start, end, ok := parseRange(rangeHeader, size)
	if !ok {
		header.Set("Content-Length", strconv.FormatInt(size, 10))
		return &Result{Status: http.StatusOK, Header: header, Body: file}, nil
	}

	length := end - start + 1
	header.Set("Content-Range", fmt.Sprintf("bytes %d-%d/%d", start, end, size))
	header.Set("Content-Length", strconv.FormatInt(length, 10))

	return &Result{
		Status: http.StatusPartialContent,
		Header: header,
		Body:   &sectionReadCloser{SectionReader: io.NewSectionReader(file, start, length), file: file},
	}, nil
}

// parseRange parses a bytes=start-end request header against the file size.
// A missing end defaults to size-1. Unsatisfiable or malformed ranges report
// ok=false, which serves the whole file.
func parseRange(header string, size int64) (start, end int64, ok bool) {
	spec, found := strings.CutPrefix(strings.TrimSpace(header), "bytes=")
	if !found || size == 0 {
		return 0, 0, false
	}
	startStr, endStr, found := strings.Cut(spec, "-")
	if !found {
		return 0, 0, false
	}
	start, err := strconv.ParseInt(strings.TrimSpace(startStr), 10, 64)
	if err != nil || start < 0 || start >= size {
		return 0, 0, false
	}
	end = size - 1
	if trimmed := strings.TrimSpace(endStr); trimmed != "" {
		end, err = strconv.ParseInt(trimmed, 10, 64)
		if err != nil || end < start {
			return 0, 0, false
		}
		if end >= size {
			end = size - 1
		}
	}
	return start, end, true
}

type sectionReadCloser struct {
	*io.SectionReader
	file *os.File
}

func (s *sectionReadCloser) Close() error {
	return s.file.Close()
}
