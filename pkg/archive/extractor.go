// Package archive unpacks the zip and tar based archives found during a scan.
package archive

import (
	"archive/tar"
	"archive/zip"
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/kvesta/depcheck/config"
)

// maxEntrySize skips entries larger than 1GB.
const maxEntrySize = 1 << 30

var ErrUnsupported = errors.New("unsupported archive type")

// ZipExtensions are opened with the zip reader.
var ZipExtensions = []string{"zip", "jar", "war", "ear", "sar", "apk", "nupkg", "whl", "egg", "aar"}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// Kind returns "zip", "tar" or "" for a file name. extra holds additional
// zip extensions, without the leading dot.
func Kind(name string, extra []string) string {
	lower := strings.ToLower(name)
	ext := strings.TrimPrefix(filepath.Ext(lower), ".")

	for _, e := range append(append([]string{}, ZipExtensions...), extra...) {
		if ext == strings.ToLower(strings.TrimPrefix(e, ".")) {
			return "zip"
		}
	}

	if strings.HasSuffix(lower, ".tar.gz") || ext == "tgz" || ext == "tar" {
		return "tar"
	}

	return ""
}

// Extract unpacks the archive at path into dest and returns the extracted files.
func Extract(path, dest string, extra []string) ([]string, error) {
	switch Kind(path, extra) {
	case "zip":
		return Unzip(path, dest)
	case "tar":
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()

		var r io.Reader = f
		if lower := strings.ToLower(path); strings.HasSuffix(lower, "gz") {
			gz, err := gzip.NewReader(f)
			if err != nil {
				return nil, fmt.Errorf("failed to read %s: %w", path, err)
			}
			defer gz.Close()
			r = gz
		}
		return Decompress(tar.NewReader(r), dest)
	}

	return nil, ErrUnsupported
}

// target joins name to dest, refusing entries that escape dest.
func target(dest, name string) (string, error) {
	extractFile := filepath.Join(dest, name)
	if !strings.HasPrefix(extractFile, filepath.Clean(dest)+string(os.PathSeparator)) {
		return "", fmt.Errorf("illegal file path in archive: %s", name)
	}
	return extractFile, nil
}

func writeFile(extractFile string, r io.Reader, mode os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(extractFile), 0775); err != nil {
		return err
	}

	if mode&0600 == 0 {
		mode = 0644
	}

	file, err := os.OpenFile(extractFile, os.O_CREATE|os.O_RDWR|os.O_TRUNC, mode.Perm())
	if err != nil {
		return err
	}
	defer file.Close()

	_, err = io.Copy(file, io.LimitReader(r, maxEntrySize))
	return err
}

// Decompress writes the regular files of a tar stream below path.
func Decompress(tarReader *tar.Reader, path string) ([]string, error) {
	var files []string

	for hdr, err := tarReader.Next(); err != io.EOF; hdr, err = tarReader.Next() {
		if err != nil {
			return files, err
		}

		extractFile, err := target(path, hdr.Name)
		if err != nil {
			config.Warnf("%v", err)
			continue
		}

		// ignore the file larger than 1GB
		if hdr.Size > maxEntrySize {
			continue
		}

		switch hdr.Typeflag {
		case tar.TypeDir:
			if !exists(extractFile) {
				if err := os.MkdirAll(extractFile, 0775); err != nil {
					return files, err
				}
			}
		case tar.TypeReg:
			if err := writeFile(extractFile, tarReader, os.FileMode(hdr.Mode)); err != nil {
				config.Warnf("file %s can not extract: %v", hdr.Name, err)
				continue
			}
			files = append(files, extractFile)
		default:
			// ignore
		}
	}

	return files, nil
}

// Unzip writes the regular files of a zip archive below dest.
func Unzip(path, dest string) ([]string, error) {
	zr, err := zip.OpenReader(path)
	if err != nil && !errors.Is(err, zip.ErrInsecurePath) {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer zr.Close()

	var files []string

	for _, f := range zr.File {
		extractFile, err := target(dest, f.Name)
		if err != nil {
			config.Warnf("%v", err)
			continue
		}

		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(extractFile, 0775); err != nil {
				return files, err
			}
			continue
		}

		if f.UncompressedSize64 > maxEntrySize {
			continue
		}

		rc, err := f.Open()
		if err != nil {
			config.Warnf("file %s can not extract: %v", f.Name, err)
			continue
		}

		err = writeFile(extractFile, rc, f.Mode())
		rc.Close()
		if err != nil {
			config.Warnf("file %s can not extract: %v", f.Name, err)
			continue
		}

		files = append(files, extractFile)
	}

	return files, nil
}
