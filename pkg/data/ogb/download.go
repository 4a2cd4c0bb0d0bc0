// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package ogb

import (
	"archive/zip"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/gomlx/molpipe/pkg/data"
	"github.com/gomlx/molpipe/pkg/support/fsutil"
	"github.com/pkg/errors"
	"github.com/schollz/progressbar/v3"
	"k8s.io/klog/v2"
)

// copyBytesBar copies bytes to an io.Writer while displaying a progress bar.
type copyBytesBar struct {
	w                             io.Writer
	bar                           *progressbar.ProgressBar
	amountWritten                 int64
	barUnit, numUnits, addedUnits int64
}

func newCopyBytesBar(w io.Writer, contentLength int64) *copyBytesBar {
	bar := &copyBytesBar{w: w, barUnit: 1}
	for contentLength > bar.barUnit*1024*1024 {
		bar.barUnit *= 1024
	}
	bar.numUnits = (contentLength + bar.barUnit - 1) / bar.barUnit
	bar.bar = progressbar.NewOptions64(bar.numUnits,
		progressbar.OptionSetDescription(humanize.IBytes(uint64(contentLength))),
		progressbar.OptionUseANSICodes(true),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetTheme(progressbar.ThemeUnicode),
	)
	return bar
}

// Write implements io.Writer, updating the progress bar.
func (bar *copyBytesBar) Write(p []byte) (n int, err error) {
	n, err = bar.w.Write(p)
	bar.amountWritten += int64(n)
	toUnits := bar.amountWritten / bar.barUnit
	if toUnits > bar.addedUnits {
		_ = bar.bar.Add64(toUnits - bar.addedUnits)
		bar.addedUnits = toUnits
	}
	return
}

// copyWithProgressBar is like io.Copy, displaying a progress bar. It requires the amount of data up-front.
func copyWithProgressBar(dst io.Writer, src io.Reader, contentLength int64) (n int64, err error) {
	bar := newCopyBytesBar(dst, contentLength)
	n, err = io.Copy(bar, src)
	if bar.addedUnits < bar.numUnits {
		_ = bar.bar.Add64(bar.numUnits - bar.addedUnits)
	}
	_ = bar.bar.Close()
	fmt.Println()
	return
}

// Download url to filePath, creating its directory if needed. The file is only created once the download
// completes.
//
// If showProgressBar is true and the server reports the content length, a progress bar is displayed.
func Download(url, filePath string, showProgressBar bool) (size int64, err error) {
	filePath, err = fsutil.ReplaceTildeInDir(filePath)
	if err != nil {
		return 0, err
	}
	client := http.Client{
		CheckRedirect: func(r *http.Request, via []*http.Request) error {
			r.URL.Opaque = r.URL.Path
			return nil
		},
	}
	resp, err := client.Get(url)
	if err != nil {
		return 0, errors.Wrapf(err, "failed downloading %q", url)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		if resp.StatusCode == http.StatusNotFound {
			return 0, data.NotFoundf("downloading %q", url)
		}
		return 0, errors.Errorf("downloading %q: %s", url, resp.Status)
	}

	err = fsutil.WriteFileAtomically(filePath, func(w io.Writer) error {
		var copyErr error
		if showProgressBar && resp.ContentLength > 0 {
			size, copyErr = copyWithProgressBar(w, resp.Body, resp.ContentLength)
		} else {
			size, copyErr = io.Copy(w, resp.Body)
		}
		return copyErr
	})
	if err != nil {
		return 0, errors.Wrapf(err, "downloading %q to %q", url, filePath)
	}
	return size, nil
}

// DownloadIfMissing downloads url to filePath if it doesn't exist yet. If checkHash is given, the file's
// sha256 is validated, see ValidateChecksum.
func DownloadIfMissing(url, filePath, checkHash string, showProgressBar bool) error {
	exists, err := fsutil.FileExists(filePath)
	if err != nil {
		return err
	}
	if !exists {
		klog.Infof("downloading %s to %s", url, filePath)
		size, err := Download(url, filePath, showProgressBar)
		if err != nil {
			return err
		}
		klog.V(1).Infof("downloaded %s", humanize.IBytes(uint64(size)))
	}
	if checkHash == "" {
		return nil
	}
	return ValidateChecksum(filePath, checkHash)
}

// ValidateChecksum compares the sha256 of the file at path with checkHash (hex encoded). On a mismatch
// the file is removed and an error returned.
func ValidateChecksum(path, checkHash string) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrapf(err, "opening %q", path)
	}
	hasher := sha256.New()
	_, err = io.Copy(hasher, f)
	_ = f.Close()
	if err != nil {
		return errors.Wrapf(err, "reading %q", path)
	}
	fileHash := hex.EncodeToString(hasher.Sum(nil))
	if fileHash != strings.ToLower(checkHash) {
		err = errors.Errorf("file %q sha256 hash is %q, but expected %q, deleting file", path, fileHash, checkHash)
		if e2 := os.Remove(path); e2 != nil {
			klog.Errorf("failed to remove %q, which failed the checksum test, please remove it: %+v", path, e2)
		}
		return err
	}
	return nil
}

// Unzip extracts zipFile into baseDir. Entries that would be extracted outside baseDir are an error.
func Unzip(zipFile, baseDir string) error {
	r, err := zip.OpenReader(zipFile)
	if err != nil {
		return errors.Wrapf(err, "opening zip file %q", zipFile)
	}
	defer func() { _ = r.Close() }()

	baseDir = filepath.Clean(baseDir)
	for _, entry := range r.File {
		target := filepath.Join(baseDir, entry.Name)
		if target != baseDir && !strings.HasPrefix(target, baseDir+string(os.PathSeparator)) {
			return errors.Errorf("zip file %q has entry %q outside of the target directory", zipFile, entry.Name)
		}
		if entry.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return errors.Wrapf(err, "creating %q", target)
			}
			continue
		}
		if err := extractEntry(entry, target); err != nil {
			return errors.WithMessagef(err, "unzipping %q", zipFile)
		}
	}
	return nil
}

func extractEntry(entry *zip.File, target string) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return errors.Wrapf(err, "creating directory for %q", target)
	}
	src, err := entry.Open()
	if err != nil {
		return errors.Wrapf(err, "opening entry %q", entry.Name)
	}
	defer func() { _ = src.Close() }()
	dst, err := os.Create(target)
	if err != nil {
		return errors.Wrapf(err, "creating %q", target)
	}
	if _, err = io.Copy(dst, src); err != nil {
		_ = dst.Close()
		return errors.Wrapf(err, "extracting %q", entry.Name)
	}
	return errors.Wrapf(dst.Close(), "closing %q", target)
}

// DownloadAndUnzipIfMissing downloads url to zipFile and extracts it into unzipBaseDir, unless
// targetUnzipDir (relative to unzipBaseDir) already exists. The zip file is removed after the
// extraction.
func DownloadAndUnzipIfMissing(url, zipFile, unzipBaseDir, targetUnzipDir, checkHash string, showProgressBar bool) error {
	var err error
	if unzipBaseDir, err = fsutil.ReplaceTildeInDir(unzipBaseDir); err != nil {
		return err
	}
	if zipFile, err = fsutil.ReplaceTildeInDir(zipFile); err != nil {
		return err
	}
	target := filepath.Join(unzipBaseDir, targetUnzipDir)
	exists, err := fsutil.FileExists(target)
	if err != nil || exists {
		return err
	}
	if err := DownloadIfMissing(url, zipFile, checkHash, showProgressBar); err != nil {
		return err
	}
	if err := Unzip(zipFile, unzipBaseDir); err != nil {
		return err
	}
	exists, err = fsutil.FileExists(target)
	if err != nil {
		return err
	}
	if !exists {
		return data.NotFoundf("%q not found after extracting %q", target, zipFile)
	}
	if err := os.Remove(zipFile); err != nil {
		klog.Warningf("failed to remove %q after extracting it: %v", zipFile, err)
	}
	return nil
}
