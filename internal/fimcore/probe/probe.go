// Package probe implements component C3 (AttrProbe) from spec.md §4.3: given
// an open directory handle and a child's metadata, it collects the
// Attributes record (an Entry with Scanned set and no diff computed) under a
// given option mask, applying the engine's hashing policy.
package probe

import (
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"encoding/hex"
	"hash"
	"io"
	"os"
	"os/exec"
	"strconv"

	"github.com/pkg/errors"

	"github.com/wazuh-fim/fimcore/internal/fimcore/entry"
	"github.com/wazuh-fim/fimcore/internal/fimcore/fsmeta"
	"github.com/wazuh-fim/fimcore/internal/fimlog"
)

// copyBufferSize matches Go's io.Copy default internal buffer size, mirroring
// mutagen's scannerCopyBufferSize rationale (core/scan.go).
const copyBufferSize = 32 * 1024

// Prober collects Attributes records for filesystem objects.
type Prober struct {
	// FileMaxSize is the exclusive upper bound on regular-file size eligible
	// for hashing (spec.md §4.3: "0 < size < file_max_size").
	FileMaxSize uint64
	// PrefilterCmd, if non-empty, is run as a subprocess that receives file
	// bytes on stdin and whose stdout is hashed in place of the raw file
	// contents. It is treated as an opaque byte-stream filter (spec.md §4.3).
	PrefilterCmd string
	// Logger receives debug-level diagnostics for recovered errors.
	Logger *fimlog.Logger
}

// Attributes collects the Attributes record for a directory child named by
// meta, opening it via parent if it is a regular file that requires hashing.
// It returns (nil, *Error{Kind: KindNotFound}) if the object no longer
// exists, and (nil, *Error{Kind: KindHashFailed}) if hashing failed partway
// through — in both cases the caller must not insert a catalog entry or emit
// an event for this observation.
func (p *Prober) Attributes(
	path string,
	parent *fsmeta.Directory,
	meta *fsmeta.Metadata,
	options entry.Options,
	mode entry.Mode,
) (*entry.Entry, error) {
	e := &entry.Entry{
		Options:       options,
		DetectionMode: mode,
		Scanned:       true,
		EntryType:     entry.TypeFile,
	}

	if options.Has(entry.CheckSize) {
		e.Size = int64(meta.Size)
	}
	if options.Has(entry.CheckPerm) {
		e.Perm = meta.Mode.PermissionString()
	}
	if options.Has(entry.CheckOwner) {
		e.UID = uidString(meta.UID)
		e.UserName = fsmeta.LookupUserName(meta.UID)
	}
	if options.Has(entry.CheckGroup) {
		e.GID = uidString(meta.GID)
		e.GroupName = fsmeta.LookupGroupName(meta.GID)
	}
	if options.Has(entry.CheckMTime) {
		e.MTime = meta.ModificationTime.Unix()
	}
	// Inode/device identity is recorded unconditionally, independent of
	// CHECK_INODE: spec.md §4.7 gates inode from *diffing* on that option and
	// restricts it to POSIX, but the catalog's hard-link tracking (C2) needs
	// the identity regardless of the option mask.
	e.Inode = meta.FileID
	e.Dev = meta.DeviceID

	isRegular := meta.Mode.Type() == fsmeta.ModeTypeFile
	isSymlink := meta.Mode.Type() == fsmeta.ModeTypeSymbolicLink

	wantHash := isRegular && !isSymlink &&
		meta.Size > 0 && meta.Size < p.FileMaxSize &&
		(options.Has(entry.CheckMD5) || options.Has(entry.CheckSHA1) || options.Has(entry.CheckSHA256))

	if wantHash {
		if err := p.hash(path, parent, meta, options, e); err != nil {
			return nil, err
		}
	}

	e.Checksum = entry.Checksum(e)
	return e, nil
}

// hash opens the file and computes the configured digests over its content,
// optionally passed through PrefilterCmd first. Symbolic links are never
// hashed (spec.md §4.3) and must not reach this function.
func (p *Prober) hash(path string, parent *fsmeta.Directory, meta *fsmeta.Metadata, options entry.Options, e *entry.Entry) error {
	file, err := parent.OpenFile(meta.Name)
	if err != nil {
		if os.IsNotExist(err) {
			return &Error{Kind: KindNotFound, Path: path, Err: err}
		}
		if os.IsPermission(err) {
			p.Logger.Debugf("permission denied opening %s: %v", path, err)
			return &Error{Kind: KindPermissionDenied, Path: path, Err: err}
		}
		return &Error{Kind: KindHashFailed, Path: path, Err: errors.Wrap(err, "unable to open file")}
	}
	defer file.Close()

	var reader io.Reader = file
	var filterCmd *exec.Cmd
	if p.PrefilterCmd != "" {
		filterCmd = exec.Command(p.PrefilterCmd)
		filterCmd.Stdin = file
		stdout, err := filterCmd.StdoutPipe()
		if err != nil {
			return &Error{Kind: KindHashFailed, Path: path, Err: errors.Wrap(err, "unable to start prefilter")}
		}
		if err := filterCmd.Start(); err != nil {
			return &Error{Kind: KindHashFailed, Path: path, Err: errors.Wrap(err, "unable to start prefilter")}
		}
		reader = stdout
	}

	var md5Hasher, sha1Hasher, sha256Hasher hash.Hash
	writers := make([]io.Writer, 0, 3)
	if options.Has(entry.CheckMD5) {
		md5Hasher = md5.New()
		writers = append(writers, md5Hasher)
	}
	if options.Has(entry.CheckSHA1) {
		sha1Hasher = sha1.New()
		writers = append(writers, sha1Hasher)
	}
	if options.Has(entry.CheckSHA256) {
		sha256Hasher = sha256.New()
		writers = append(writers, sha256Hasher)
	}

	multi := io.MultiWriter(writers...)
	buffer := make([]byte, copyBufferSize)
	if _, err := io.CopyBuffer(multi, reader, buffer); err != nil {
		return &Error{Kind: KindHashFailed, Path: path, Err: errors.Wrap(err, "unable to hash file contents")}
	}
	if filterCmd != nil {
		if err := filterCmd.Wait(); err != nil {
			return &Error{Kind: KindHashFailed, Path: path, Err: errors.Wrap(err, "prefilter command failed")}
		}
	}

	if md5Hasher != nil {
		e.HashMD5 = hex.EncodeToString(md5Hasher.Sum(nil))
	}
	if sha1Hasher != nil {
		e.HashSHA1 = hex.EncodeToString(sha1Hasher.Sum(nil))
	}
	if sha256Hasher != nil {
		e.HashSHA256 = hex.EncodeToString(sha256Hasher.Sum(nil))
	}
	return nil
}

func uidString(id uint32) string {
	return strconv.FormatUint(uint64(id), 10)
}
