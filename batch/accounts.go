package batch

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// LoadAccounts reads one account per line from path. Lines are trimmed,
// blank lines and lines starting with '#' are skipped, and a leading '@' is
// dropped. At most limit accounts are returned when limit > 0.
func LoadAccounts(path string, limit int) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open accounts file: %w", err)
	}
	defer f.Close()

	accounts, err := ParseAccounts(f, limit)
	if err != nil {
		return nil, fmt.Errorf("read accounts file %s: %w", path, err)
	}
	return accounts, nil
}

// ParseAccounts is LoadAccounts over an arbitrary reader.
func ParseAccounts(r io.Reader, limit int) ([]string, error) {
	var out []string
	seen := make(map[string]struct{})
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		line = strings.TrimPrefix(line, "@")
		if _, dup := seen[line]; dup {
			continue
		}
		seen[line] = struct{}{}
		out = append(out, line)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, sc.Err()
}

// DefaultAccountsFile returns the per-collector accounts file name.
func DefaultAccountsFile(collectorID string) string {
	return fmt.Sprintf("accounts_%s.txt", collectorID)
}
