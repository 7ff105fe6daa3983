package fsmeta

import (
	"os"
	"strings"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// ensureValidName verifies that name is a bare child name, not a path or a
// "." / ".." reference (ported from directory_posix.go's ensureValidName).
func ensureValidName(name string) error {
	if name == "." {
		return errors.New("name is directory reference")
	} else if name == ".." {
		return errors.New("name is parent directory reference")
	} else if strings.IndexByte(name, os.PathSeparator) != -1 {
		return errors.New("path separator appears in name")
	}
	return nil
}

// Directory represents an open directory and provides race-free operations
// on its contents via the openat/fstatat/readlinkat family, avoiding
// symbolic-link traversal at every step.
type Directory struct {
	descriptor int
	file       *os.File
}

// OpenRoot opens path as either a directory or a regular file, refusing to
// follow a symbolic link at the root itself (intermediate symbolic links
// along path are still followed by the OS, matching mutagen's
// filesystem.Open semantics). It returns the opened object's Metadata
// alongside either a *Directory or an *os.File.
func OpenRoot(path string) (interface{}, *Metadata, error) {
	descriptor, err := unix.Open(path, unix.O_RDONLY|unix.O_NOFOLLOW|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, nil, err
	}

	var stat unix.Stat_t
	if err := unix.Fstat(descriptor, &stat); err != nil {
		unix.Close(descriptor)
		return nil, nil, errors.Wrap(err, "unable to query root metadata")
	}

	metadata := metadataFromStat(path, &stat)

	switch Mode(stat.Mode) & ModeTypeMask {
	case ModeTypeDirectory:
		return &Directory{descriptor: descriptor, file: os.NewFile(uintptr(descriptor), path)}, metadata, nil
	case ModeTypeFile:
		return os.NewFile(uintptr(descriptor), path), metadata, nil
	default:
		unix.Close(descriptor)
		return nil, nil, errors.New("synchronization root is neither a directory nor a regular file")
	}
}

// Close closes the directory.
func (d *Directory) Close() error {
	return d.file.Close()
}

// open is the shared implementation for OpenDirectory and OpenFile.
func (d *Directory) open(name string, wantDirectory bool) (int, error) {
	if err := ensureValidName(name); err != nil {
		return -1, err
	}

	descriptor, err := unix.Openat(d.descriptor, name, unix.O_RDONLY|unix.O_NOFOLLOW|unix.O_CLOEXEC, 0)
	if err != nil {
		return -1, err
	}

	var stat unix.Stat_t
	if err := unix.Fstat(descriptor, &stat); err != nil {
		unix.Close(descriptor)
		return -1, errors.Wrap(err, "unable to query file metadata")
	}

	expected := ModeTypeFile
	if wantDirectory {
		expected = ModeTypeDirectory
	}
	if Mode(stat.Mode)&ModeTypeMask != expected {
		unix.Close(descriptor)
		return -1, errors.New("path is not of the expected type")
	}

	return descriptor, nil
}

// OpenDirectory opens the subdirectory named name within d.
func (d *Directory) OpenDirectory(name string) (*Directory, error) {
	descriptor, err := d.open(name, true)
	if err != nil {
		return nil, err
	}
	return &Directory{descriptor: descriptor, file: os.NewFile(uintptr(descriptor), name)}, nil
}

// OpenFile opens the regular file named name within d for reading.
func (d *Directory) OpenFile(name string) (*os.File, error) {
	descriptor, err := d.open(name, false)
	if err != nil {
		return nil, err
	}
	return os.NewFile(uintptr(descriptor), name), nil
}

// ReadContents lists d's children and their metadata in one pass, skipping
// entries that disappear between listing and stat (treated as though they
// never existed, matching mutagen's ReadContents semantics).
func (d *Directory) ReadContents() ([]*Metadata, error) {
	names, err := d.file.Readdirnames(0)
	if err != nil {
		return nil, errors.Wrap(err, "unable to read directory content names")
	}
	if _, err := d.file.Seek(0, 0); err != nil {
		return nil, errors.Wrap(err, "unable to reset directory read pointer")
	}

	results := make([]*Metadata, 0, len(names))
	for _, name := range names {
		if name == "." || name == ".." {
			continue
		}
		m, err := d.readContentMetadata(name)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, errors.Wrapf(err, "unable to stat %q", name)
		}
		results = append(results, m)
	}
	return results, nil
}

// StatChild returns the metadata of the single child named name within d,
// without listing the rest of d's contents. It is used by realtime/whodata
// single-path intake, which names an exact child rather than enumerating a
// directory (spec.md §4.6 "the walker is re-entrant").
func (d *Directory) StatChild(name string) (*Metadata, error) {
	return d.readContentMetadata(name)
}

func (d *Directory) readContentMetadata(name string) (*Metadata, error) {
	if err := ensureValidName(name); err != nil {
		return nil, err
	}
	var stat unix.Stat_t
	if err := unix.Fstatat(d.descriptor, name, &stat, unix.AT_SYMLINK_NOFOLLOW); err != nil {
		return nil, err
	}
	m := metadataFromStat(name, &stat)
	return m, nil
}

// ReadSymbolicLink reads the target of the symbolic link named name within
// d, growing its buffer until the whole target fits.
func (d *Directory) ReadSymbolicLink(name string) (string, error) {
	if err := ensureValidName(name); err != nil {
		return "", err
	}
	for size := 128; ; size *= 2 {
		buffer := make([]byte, size)
		n, err := unix.Readlinkat(d.descriptor, name, buffer)
		if err != nil {
			return "", &os.PathError{Op: "readlinkat", Path: name, Err: err}
		}
		if n < size {
			return string(buffer[:n]), nil
		}
	}
}

func metadataFromStat(name string, stat *unix.Stat_t) *Metadata {
	return &Metadata{
		Name:             name,
		Mode:             Mode(stat.Mode),
		Size:             uint64(stat.Size),
		ModificationTime: time.Unix(stat.Mtim.Sec, stat.Mtim.Nsec),
		DeviceID:         uint64(stat.Dev),
		FileID:           uint64(stat.Ino),
		UID:              stat.Uid,
		GID:              stat.Gid,
	}
}
