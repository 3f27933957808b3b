package memory

import (
	"encoding/hex"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/LeJamon/goProgIndex/internal/codec/record"
	"github.com/LeJamon/goProgIndex/internal/ledger"
)

// Fixture describes the accounts of one program.
//
//	program_id: HdE95RSVsdb315jfJtaykXhXY478h53X6okDupVfY9yf
//	accounts:
//	  - name: ann
//	    message: hello
//	  - handle: 9xQeWvG816bUx9EPjHmaT23yvVM2ZWbrrpZb9PusVFin
//	    raw: "01ffffffff"
type Fixture struct {
	ProgramID string           `yaml:"program_id"`
	Accounts  []FixtureAccount `yaml:"accounts"`
}

// FixtureAccount is either a record (name and message) or raw hex account data.
type FixtureAccount struct {
	Handle  string `yaml:"handle,omitempty"`
	Name    string `yaml:"name,omitempty"`
	Message string `yaml:"message,omitempty"`
	Raw     string `yaml:"raw,omitempty"`
}

// LoadFixtureFile reads a YAML fixture from disk.
func LoadFixtureFile(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read fixture %s: %w", path, err)
	}
	var fx Fixture
	if err := yaml.Unmarshal(data, &fx); err != nil {
		return nil, fmt.Errorf("failed to parse fixture %s: %w", path, err)
	}
	return &fx, nil
}

// Apply loads the fixture accounts into l. headerLen is the program's account
// header size placed before each encoded record. An empty fixture program id
// falls back to defaultOwner.
func (fx *Fixture) Apply(l *Ledger, defaultOwner ledger.Handle, headerLen int) error {
	owner := defaultOwner
	if fx.ProgramID != "" {
		var err error
		if owner, err = ledger.ParseHandle(fx.ProgramID); err != nil {
			return fmt.Errorf("fixture program_id: %w", err)
		}
	}

	for i, acct := range fx.Accounts {
		var data []byte
		var err error
		if acct.Raw != "" {
			data, err = hex.DecodeString(acct.Raw)
		} else {
			data, err = record.EncodeAccount(acct.Name, acct.Message, headerLen)
		}
		if err != nil {
			return fmt.Errorf("fixture account %d: %w", i, err)
		}

		if acct.Handle == "" {
			l.Add(owner, data)
			continue
		}
		h, err := ledger.ParseHandle(acct.Handle)
		if err != nil {
			return fmt.Errorf("fixture account %d: %w", i, err)
		}
		l.Put(owner, h, data)
	}
	return nil
}
