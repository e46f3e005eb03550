package movejob

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/cespare/xxhash/v2"

	"github.com/yeisme/advstorage/pkg/layout"
)

var errChecksumMismatch = errors.New("target exists with different content")

// moveAttachment 复制到目标存储池，更新位置记录后删除源文件.
func (j *Job) moveAttachment(ctx context.Context, att Attachment) error {
	cur, err := layout.ParseRecord(att.UUID, att.Metadata)
	if err != nil {
		return err
	}

	if !cur.IsOwner() || cur.HasAbsolutePath() {
		return ErrNotOwned
	}

	next := layout.CreateForMoveStorage(cur, j.target)

	src, err := cur.AbsolutePath(j.reg)
	if err != nil {
		return err
	}

	dst, err := next.AbsolutePath(j.reg)
	if err != nil {
		return err
	}

	if src == dst {
		return nil
	}

	if !layout.IsRegularFile(src) {
		return fmt.Errorf("source file not found: %s", src)
	}

	if err := layout.EnsureDirectory(filepath.Dir(dst)); err != nil {
		return err
	}

	if err := copyExclusive(src, dst); err != nil {
		return err
	}

	data, err := next.Marshal(j.reg)
	if err != nil {
		return err
	}

	if err := j.host.UpdateAttachmentMetadata(ctx, att.UUID, data); err != nil {
		j.logger.Error().Err(err).Str("uuid", att.UUID).Msg("unable to update location record, deleting the copy")

		_ = os.Remove(dst)
		layout.RemoveEmptyParentDirectories(j.reg, dst)

		return fmt.Errorf("update location record: %w", err)
	}

	if err := os.Remove(src); err != nil && !errors.Is(err, fs.ErrNotExist) {
		j.logger.Warn().Err(err).Str("path", src).Msg("unable to delete moved source file")
	}

	layout.RemoveEmptyParentDirectories(j.reg, src)

	return nil
}

// copyExclusive 复制文件，目标已存在时比较校验和：相同视为已复制，不同则失败.
func copyExclusive(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if errors.Is(err, fs.ErrExist) {
		same, cerr := sameContent(src, dst)
		if cerr != nil {
			return cerr
		}

		if !same {
			return fmt.Errorf("%w: %s", errChecksumMismatch, dst)
		}

		return nil
	}

	if err != nil {
		return err
	}

	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		_ = os.Remove(dst)

		return fmt.Errorf("copy %s: %w", src, err)
	}

	if err := out.Close(); err != nil {
		_ = os.Remove(dst)
		return err
	}

	return nil
}

func sameContent(a, b string) (bool, error) {
	ha, err := checksum(a)
	if err != nil {
		return false, err
	}

	hb, err := checksum(b)
	if err != nil {
		return false, err
	}

	return ha == hb, nil
}

func checksum(path string) (uint64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	h := xxhash.New()
	if _, err := io.Copy(h, f); err != nil {
		return 0, err
	}

	return h.Sum64(), nil
}
