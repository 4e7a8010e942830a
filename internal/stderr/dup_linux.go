//go:build linux

package stderr

import "syscall"

// dup2 uses Dup3, which every linux port provides.
func dup2(oldfd, newfd int) error {
	return syscall.Dup3(oldfd, newfd, 0)
}
