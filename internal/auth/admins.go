package auth

import (
	"strings"

	"github.com/hugh/c4p-portal/pkg/config"
)

// Admins is the technical committee allow-list, keyed by lowercase email.
type Admins struct {
	accounts []config.AdminAccount
	emails   map[string]struct{}
}

func NewAdmins(accounts []config.AdminAccount) *Admins {
	a := &Admins{emails: make(map[string]struct{}, len(accounts))}
	for _, acc := range accounts {
		email := strings.ToLower(strings.TrimSpace(acc.Email))
		if _, dup := a.emails[email]; dup {
			continue
		}
		a.emails[email] = struct{}{}
		a.accounts = append(a.accounts, config.AdminAccount{Email: email, Password: acc.Password})
	}
	return a
}

func (a *Admins) IsAdmin(email string) bool {
	if a == nil {
		return false
	}
	_, ok := a.emails[strings.ToLower(strings.TrimSpace(email))]
	return ok
}

func (a *Admins) Accounts() []config.AdminAccount {
	if a == nil {
		return nil
	}
	return a.accounts
}

func (a *Admins) Emails() []string {
	if a == nil {
		return nil
	}
	out := make([]string, 0, len(a.accounts))
	for _, acc := range a.accounts {
		out = append(out, acc.Email)
	}
	return out
}
