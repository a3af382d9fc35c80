package extractor

import "os"

// Plaintext reads a file as-is, dropping invalid UTF-8 sequences.
type Plaintext struct{}

func (p *Plaintext) Extract(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return sanitizeUTF8(string(data)), nil
}
