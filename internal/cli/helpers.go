package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/tutu-network/swarmpay/internal/daemon"
	"github.com/tutu-network/swarmpay/internal/domain"
)

// openDaemon opens the local node. Unless --verbose is set, only warnings
// and errors are logged, in console form.
func openDaemon() (*daemon.Daemon, error) {
	cfg, err := daemon.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if !verbose {
		cfg.Logging.Level = "warn"
		cfg.Logging.Encoding = "console"
	}
	return daemon.NewWithConfig(cfg)
}

// printJSON writes v as indented JSON to stdout.
func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// parseAccountArg accepts a full account name or a bare identity hex.
func parseAccountArg(s string) (domain.Account, error) {
	if s == string(domain.SystemPool) || strings.Contains(s, ":") {
		return domain.Account(s), nil
	}
	id, err := domain.ParseIdentity(s)
	if err != nil {
		return "", err
	}
	return domain.IdentityAccount(id), nil
}

// parseMember parses IDENTITY or IDENTITY:SIGNATURE.
func parseMember(s string) (domain.Identity, domain.Signature, error) {
	idHex, sigHex, hasSig := strings.Cut(s, ":")
	id, err := domain.ParseIdentity(idHex)
	if err != nil {
		return domain.Identity{}, domain.Signature{}, err
	}
	var sig domain.Signature
	if hasSig {
		if sig, err = domain.ParseSignature(sigHex); err != nil {
			return domain.Identity{}, domain.Signature{}, err
		}
	}
	return id, sig, nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04:05")
}
