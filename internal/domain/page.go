package domain

import "strings"

// Page names one of the top-level views of the application.
type Page string

const (
	PageHome        Page = "home"
	PageSignIn      Page = "sign-in"
	PageLocalMail   Page = "local-mail"
	PageChat        Page = "chat"
	PageNotepad     Page = "notepad"
	PageContact     Page = "contact"
	PageCalculator  Page = "calculator"
	PageAI          Page = "ai"
	PageDialer      Page = "dialer"
	PageProfile     Page = "profile"
	PageAdminPortal Page = "admin-portal"
	PageMore        Page = "more"
)

// Pages lists every page in menu order.
var Pages = []Page{
	PageHome, PageSignIn, PageLocalMail, PageChat, PageNotepad, PageContact,
	PageCalculator, PageAI, PageDialer, PageProfile, PageAdminPortal, PageMore,
}

// ParsePage resolves a page name, case-insensitively.
func ParsePage(s string) (Page, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, p := range Pages {
		if string(p) == s {
			return p, true
		}
	}
	return "", false
}
