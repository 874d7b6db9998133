package update

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/forgehq/forge/internal/ferrors"
)

// elfMagic is the required leading bytes of a valid downloaded binary.
var elfMagic = []byte{0x7f, 0x45, 0x4c, 0x46}

// Progress reports download progress as bytes accumulate.
type Progress struct {
	Downloaded int64
	Total      int64
	Percent    float64
}

// PerformUpdate streams url to a uniquely-suffixed staging file under the
// system temp directory, verifies the final size matches expectedSize, then
// verifies the ELF magic header. progress may be nil.
func PerformUpdate(ctx context.Context, url string, expectedSize int64, progress func(Progress)) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, downloadTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", ferrors.Wrap(ferrors.KindUpdateDownload, url, "building download request", err)
	}

	resp, err := newClient().Do(req)
	if err != nil {
		return "", ferrors.Wrap(ferrors.KindUpdateDownload, url, "downloading update", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", ferrors.New(ferrors.KindUpdateDownload, fmt.Sprintf("download failed with status %d", resp.StatusCode))
	}

	stagingPath := filepath.Join(os.TempDir(), fmt.Sprintf("forge-update-%s", uuid.NewString()))
	out, err := os.OpenFile(stagingPath, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o755)
	if err != nil {
		return "", ferrors.Wrap(ferrors.KindUpdateDownload, stagingPath, "creating staging file", err)
	}
	defer out.Close()

	written, err := copyWithProgress(out, resp.Body, expectedSize, progress)
	if err != nil {
		os.Remove(stagingPath)
		return "", ferrors.Wrap(ferrors.KindUpdateDownload, stagingPath, "writing staging file", err)
	}

	if expectedSize > 0 && written != expectedSize {
		os.Remove(stagingPath)
		return "", ferrors.New(ferrors.KindUpdateVerification,
			fmt.Sprintf("downloaded %d bytes, expected %d", written, expectedSize))
	}

	if err := verifyELFMagic(stagingPath); err != nil {
		os.Remove(stagingPath)
		return "", err
	}

	return stagingPath, nil
}

func copyWithProgress(dst io.Writer, src io.Reader, total int64, progress func(Progress)) (int64, error) {
	buf := make([]byte, 32*1024)
	var written int64
	for {
		n, readErr := src.Read(buf)
		if n > 0 {
			if _, werr := dst.Write(buf[:n]); werr != nil {
				return written, werr
			}
			written += int64(n)
			if progress != nil {
				p := Progress{Downloaded: written, Total: total}
				if total > 0 {
					p.Percent = float64(written) / float64(total) * 100
				}
				progress(p)
			}
		}
		if readErr == io.EOF {
			return written, nil
		}
		if readErr != nil {
			return written, readErr
		}
	}
}

func verifyELFMagic(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return ferrors.Wrap(ferrors.KindUpdateVerification, path, "opening staged binary", err)
	}
	defer f.Close()

	header := make([]byte, len(elfMagic))
	if _, err := io.ReadFull(f, header); err != nil {
		return ferrors.Wrap(ferrors.KindUpdateVerification, path, "reading header", err)
	}
	for i, b := range elfMagic {
		if header[i] != b {
			return ferrors.New(ferrors.KindUpdateVerification, "staged binary is not a valid ELF executable").WithPath(path)
		}
	}
	return nil
}

// VerifyChecksum compares the SHA-256 of the file at path against expected
// (hex-encoded). This is additive: FORGE verifies it only when the release
// includes a "<name>.sha256" sibling asset; its absence does not fail
// verification.
func VerifyChecksum(path, expectedHex string) error {
	f, err := os.Open(path)
	if err != nil {
		return ferrors.Wrap(ferrors.KindUpdateVerification, path, "opening file for checksum", err)
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return ferrors.Wrap(ferrors.KindUpdateVerification, path, "hashing file", err)
	}

	got := hex.EncodeToString(h.Sum(nil))
	if got != expectedHex {
		return ferrors.New(ferrors.KindUpdateVerification,
			fmt.Sprintf("checksum mismatch: got %s, want %s", got, expectedHex))
	}
	return nil
}

// ChecksumAssetName returns the conventional sibling-checksum asset name
// for a release asset, e.g. "forge_linux_amd64.sha256".
func ChecksumAssetName(assetName string) string {
	return assetName + ".sha256"
}
