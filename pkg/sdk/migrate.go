package sdk

import "fmt"

// Migrate copies every credential from src into dst and writes dst. Keys
// only present in dst are kept. This works for:
// - File -> Remote (moving a local keystore behind a daemon)
// - Remote -> File (an offline backup)
// - Plain -> Encrypted (dst opened with a password)
func Migrate(src, dst Keystore) error {
	data, err := src.GetAll()
	if err != nil {
		return fmt.Errorf("failed to read source %s: %w", src.Path(), err)
	}

	for k, v := range data {
		if err := dst.Set(k, v); err != nil {
			return fmt.Errorf("failed to set key %s in destination: %w", k, err)
		}
	}

	if err := dst.Write(); err != nil {
		return fmt.Errorf("failed to write destination %s: %w", dst.Path(), err)
	}
	return nil
}
