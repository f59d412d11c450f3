//go:build unix

package bundle

import "syscall"

// tryLockExclusive takes a non-blocking advisory write lock on fd.
// Exclusive writer access is a documented assumption, not an enforced
// guarantee; a failed lock is reported but callers may choose to proceed.
func tryLockExclusive(fd uintptr) error {
	return syscall.Flock(int(fd), syscall.LOCK_EX|syscall.LOCK_NB)
}

func unlock(fd uintptr) error {
	return syscall.Flock(int(fd), syscall.LOCK_UN)
}
