package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/openkcm/common-sdk/pkg/commoncfg"
)

// ErrIncompleteDatabase is returned when the credential store database has
// no name or port configured.
var ErrIncompleteDatabase = errors.New("database.name and database.port are required for the postgres storage")

// MakeConnStr builds the key/value DSN of the database holding the
// credential_slots table. Values are quoted when libpq would split them.
func MakeConnStr(conf Database) (string, error) {
	if strings.TrimSpace(conf.Name) == "" || strings.TrimSpace(conf.Port) == "" {
		return "", ErrIncompleteDatabase
	}

	host, err := commoncfg.LoadValueFromSourceRef(conf.Host)
	if err != nil {
		return "", fmt.Errorf("loading credential store db host: %w", err)
	}

	user, err := commoncfg.LoadValueFromSourceRef(conf.User)
	if err != nil {
		return "", fmt.Errorf("loading credential store db user: %w", err)
	}

	password, err := commoncfg.LoadValueFromSourceRef(conf.Password)
	if err != nil {
		return "", fmt.Errorf("loading credential store db password: %w", err)
	}

	return fmt.Sprintf("host=%s port=%s dbname=%s user=%s password=%s",
		dsnValue(string(host)), dsnValue(conf.Port), dsnValue(conf.Name),
		dsnValue(string(user)), dsnValue(string(password))), nil
}

func dsnValue(v string) string {
	if v != "" && !strings.ContainsAny(v, ` '\`) {
		return v
	}

	return "'" + strings.NewReplacer(`\`, `\\`, `'`, `\'`).Replace(v) + "'"
}
