package fsmeta

import "golang.org/x/sys/unix"

// filesystemTypeNames maps statfs(2) f_type magic numbers to the short names
// used in skip_fs configuration lists, extending the
// magic-number-to-Format mapping in mutagen's format_statfs_linux.go (which
// only distinguished EXT/NFS) to the broader set of pseudo-filesystems a FIM
// deployment typically wants to exclude.
var filesystemTypeNames = map[int64]string{
	int64(unix.EXT4_SUPER_MAGIC): "ext4",
	int64(unix.NFS_SUPER_MAGIC):  "nfs",
	int64(unix.TMPFS_MAGIC):      "tmpfs",
	int64(unix.PROC_SUPER_MAGIC): "proc",
	int64(unix.SYSFS_MAGIC):      "sysfs",
	int64(unix.DEVPTS_SUPER_MAGIC): "devpts",
	int64(unix.CGROUP_SUPER_MAGIC): "cgroup",
	int64(unix.CGROUP2_SUPER_MAGIC): "cgroup2",
}

// FilesystemType reports the short type name of the filesystem containing
// path (e.g. "tmpfs", "ext4"), or "" if the type is not in the known table.
// This backs component C4's skipped-filesystem test (spec.md §4.4).
func FilesystemType(path string) (string, error) {
	var stat unix.Statfs_t
	if err := unix.Statfs(path, &stat); err != nil {
		return "", err
	}
	if name, ok := filesystemTypeNames[int64(stat.Type)]; ok {
		return name, nil
	}
	return "", nil
}
