//go:build !darwin && !linux

package foreign

import "fmt"

func (b *Bridge) load() error {
	return fmt.Errorf("shell formatter shared library is not supported on this platform")
}
