package portal

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const sessionCookie = "JSESSIONID"

// fakePortal serves the three portal endpoints from canned content.
type fakePortal struct {
	t      *testing.T
	server *httptest.Server

	mu           sync.Mutex
	captchaHTML  string
	captchaCode  int
	cases        map[string]string // "ctype|regno|regyr" -> page HTML
	lookupStatus int
	documents    map[string][]byte
	lookups      []map[string]string
	cookies      []string
}

func newFakePortal(t *testing.T) *fakePortal {
	t.Helper()
	p := &fakePortal{
		t:           t,
		captchaHTML: `<html><body><a href="#" onclick="playAudio()"> 7QX2P </a></body></html>`,
		cases:       make(map[string]string),
		documents:   make(map[string][]byte),
	}
	mux := http.NewServeMux()
	mux.HandleFunc("GET "+launchPath, p.handleLaunch)
	mux.HandleFunc("POST "+lookupPath, p.handleLookup)
	mux.HandleFunc("POST "+documentPath, p.handleDocument)
	p.server = httptest.NewServer(mux)
	t.Cleanup(p.server.Close)
	return p
}

func (p *fakePortal) client(t *testing.T) *Client {
	t.Helper()
	c, err := NewClient(Config{
		BaseURL: p.server.URL,
		Timeout: 5 * time.Second,
		SCode:   "31",
		FFlag:   "1",
	}, nil, nil)
	require.NoError(t, err)
	return c
}

func (p *fakePortal) addCase(ctype string, regno, regyr int, html string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cases[fmt.Sprintf("%s|%d|%d", ctype, regno, regyr)] = html
}

func (p *fakePortal) addDocument(path string, content []byte) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.documents[path] = content
}

func (p *fakePortal) Lookups() []map[string]string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]map[string]string(nil), p.lookups...)
}

func (p *fakePortal) handleLaunch(w http.ResponseWriter, _ *http.Request) {
	p.mu.Lock()
	html, code := p.captchaHTML, p.captchaCode
	p.mu.Unlock()
	if code != 0 {
		w.WriteHeader(code)
		return
	}
	http.SetCookie(w, &http.Cookie{Name: sessionCookie, Value: "session-1", Path: "/"})
	_, _ = w.Write([]byte(html))
}

func (p *fakePortal) handleLookup(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	form := map[string]string{}
	for k := range r.PostForm {
		form[k] = r.PostForm.Get(k)
	}
	cookie := ""
	if c, err := r.Cookie(sessionCookie); err == nil {
		cookie = c.Value
	}

	p.mu.Lock()
	p.lookups = append(p.lookups, form)
	p.cookies = append(p.cookies, cookie)
	status := p.lookupStatus
	html, ok := p.cases[fmt.Sprintf("%s|%s|%s", form["ctype"], form["regno"], form["regyr"])]
	p.mu.Unlock()

	if status != 0 {
		w.WriteHeader(status)
		if status < http.StatusOK || status > 299 {
			return
		}
	}
	if !ok {
		// The portal answers unknown cases with a page lacking the headings.
		_, _ = w.Write([]byte(`<html><body><h5>No record found</h5></body></html>`))
		return
	}
	_, _ = w.Write([]byte(html))
}

func (p *fakePortal) handleDocument(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	p.mu.Lock()
	content, ok := p.documents[r.PostForm.Get("filepath")]
	p.mu.Unlock()
	if !ok {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	_, _ = w.Write(content)
}

func casePageHTML(parties, status, nextDate string, rows ...string) string {
	html := fmt.Sprintf(`<html><body>
<h5>%s</h5>
<h5>Status: <span>%s</span> Next date: <span>%s</span></h5>`, parties, status, nextDate)
	if rows != nil {
		html += `<table><tr><th>S.No.</th><th>Case No</th><th>Date</th><th>Corrigenda</th><th>Hindi</th></tr>`
		for _, row := range rows {
			html += row
		}
		html += `</table>`
	}
	return html + `</body></html>`
}

func orderRowHTML(n int, filePath string) string {
	link := fmt.Sprintf("CS(COMM) %d/2023", n)
	if filePath != "" {
		link = fmt.Sprintf(`<a href="#" onclick="openOrder('%s')">CS(COMM) %d/2023</a>`, filePath, n)
	}
	return fmt.Sprintf(`<tr><td>%d</td><td>%s</td><td>0%d/01/2024</td><td></td><td></td></tr>`, n, link, n)
}
