// Package mmsdmtest serves a fake MMSDM archive for tests
package mmsdmtest

import (
	"archive/zip"
	"bytes"
	"compress/gzip"
	"fmt"
	"html"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"time"

	"nemseer/internal/core/forecast"
	"nemseer/internal/core/resolve"
)

// Archive is an httptest server laid out like the nemweb archive. Folders are
// listed as IIS style directory pages and files are served as stored
type Archive struct {
	*httptest.Server

	// Gzip encodes every response when the client accepts gzip
	Gzip bool

	mu       sync.Mutex
	files    map[string][]byte
	fail     map[string][]int
	requests map[string]int
	headers  []http.Header
}

// New starts an empty archive. Close it when done
func New() *Archive {
	a := &Archive{
		files:    map[string][]byte{},
		fail:     map[string][]int{},
		requests: map[string]int{},
	}
	a.Server = httptest.NewServer(http.HandlerFunc(a.serve))
	return a
}

// Base is the archive root with a trailing slash
func (a *Archive) Base() string { return a.URL + "/" }

// FolderPath is the path of a month's SQLLoader folder
func FolderPath(year int, month time.Month, folder string) string {
	return fmt.Sprintf("/%d/MMSDM_%d_%02d/MMSDM_Historical_Data_SQLLoader/%s/", year, year, int(month), folder)
}

// TablePath is where the zip of a physical table lives
func TablePath(year int, month time.Month, t forecast.Type, table string) string {
	return FolderPath(year, month, resolve.Folder(t, table)) + resolve.Stub(year, month, t, table) + ".zip"
}

// Put stores a raw file
func (a *Archive) Put(path string, body []byte) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.files[path] = body
}

// PutTable stores a zip holding one <stub>.CSV with the given body
func (a *Archive) PutTable(year int, month time.Month, t forecast.Type, table, csv string) {
	stub := resolve.Stub(year, month, t, table)
	a.Put(TablePath(year, month, t, table), Zip(map[string]string{stub + ".CSV": csv}))
}

// FailNext answers the next requests for path with the given statuses in order
func (a *Archive) FailNext(path string, statuses ...int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.fail[path] = append(a.fail[path], statuses...)
}

// Requests counts requests for path
func (a *Archive) Requests(path string) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.requests[path]
}

// Total counts all requests
func (a *Archive) Total() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	n := 0
	for _, v := range a.requests {
		n += v
	}
	return n
}

// Headers returns the request headers seen so far, oldest first
func (a *Archive) Headers() []http.Header {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]http.Header(nil), a.headers...)
}

func (a *Archive) serve(w http.ResponseWriter, r *http.Request) {
	a.mu.Lock()
	p := r.URL.Path
	a.requests[p]++
	a.headers = append(a.headers, r.Header.Clone())
	if q := a.fail[p]; len(q) > 0 {
		a.fail[p] = q[1:]
		a.mu.Unlock()
		http.Error(w, http.StatusText(q[0]), q[0])
		return
	}
	body, isFile := a.files[p]
	var page []byte
	if !isFile && strings.HasSuffix(p, "/") {
		page = a.listing(p)
	}
	a.mu.Unlock()

	switch {
	case isFile:
		a.write(w, r, "application/x-zip-compressed", body)
	case page != nil:
		a.write(w, r, "text/html", page)
	default:
		http.NotFound(w, r)
	}
}

func (a *Archive) write(w http.ResponseWriter, r *http.Request, ctype string, body []byte) {
	w.Header().Set("Content-Type", ctype)
	if a.Gzip && strings.Contains(r.Header.Get("Accept-Encoding"), "gzip") {
		var buf bytes.Buffer
		gz := gzip.NewWriter(&buf)
		_, _ = gz.Write(body)
		_ = gz.Close()
		w.Header().Set("Content-Encoding", "gzip")
		body = buf.Bytes()
	}
	_, _ = w.Write(body)
}

// listing renders a directory page or nil when dir holds nothing. Caller holds mu
func (a *Archive) listing(dir string) []byte {
	type entry struct {
		name string
		size int
		dir  bool
	}
	seen := map[string]entry{}
	for k, v := range a.files {
		rest, ok := strings.CutPrefix(k, dir)
		if !ok || rest == "" {
			continue
		}
		if i := strings.IndexByte(rest, '/'); i >= 0 {
			seen[rest[:i+1]] = entry{name: rest[:i+1], dir: true}
			continue
		}
		seen[rest] = entry{name: rest, size: len(v)}
	}
	if len(seen) == 0 && dir != "/" {
		return nil
	}
	names := make([]string, 0, len(seen))
	for k := range seen {
		names = append(names, k)
	}
	sort.Strings(names)

	var b strings.Builder
	fmt.Fprintf(&b, "<html><head><title>%s</title></head><body><H1>%s</H1><hr>\n<pre>", html.EscapeString(dir), html.EscapeString(dir))
	if dir != "/" {
		b.WriteString(`<A HREF="../">[To Parent Directory]</A><br><br>`)
	}
	for _, n := range names {
		e := seen[n]
		size := "&lt;dir&gt;"
		if !e.dir {
			size = fmt.Sprint(e.size)
		}
		fmt.Fprintf(&b, " Monday, January 4, 2021 10:55 AM %12s <A HREF=\"%s%s\">%s</A><br>", size, dir, n, strings.TrimSuffix(n, "/"))
	}
	b.WriteString("</pre><hr></body></html>")
	return []byte(b.String())
}

// Zip builds an archive from name to content
func Zip(members map[string]string) []byte {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	names := make([]string, 0, len(members))
	for n := range members {
		names = append(names, n)
	}
	sort.Strings(names)
	for _, n := range names {
		f, err := zw.Create(n)
		if err != nil {
			panic(err)
		}
		_, _ = f.Write([]byte(members[n]))
	}
	if err := zw.Close(); err != nil {
		panic(err)
	}
	return buf.Bytes()
}

// CSV renders an MMSDM SQLLoader CSV with its control records
func CSV(t forecast.Type, table string, header []string, rows ...[]string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "C,NEMP.WORLD,%s_%s,AEMO,PUBLIC,2021/02/01,00:00:00,0000000123456789,MMSDM,0000000123456789\n", t, table)
	fmt.Fprintf(&b, "I,%s,%s,1,%s\n", t, table, strings.Join(header, ","))
	for _, r := range rows {
		fmt.Fprintf(&b, "D,%s,%s,1,%s\n", t, table, strings.Join(r, ","))
	}
	fmt.Fprintf(&b, "C,\"END OF REPORT\",%d\n", len(rows)+3)
	return b.String()
}
