package extract

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

const articlePage = `<html><head><title>Grid storage</title></head><body>
<nav><a href="/">home</a></nav>
<article>
<p>Grid-scale batteries have moved from pilot projects to routine utility
procurement over the past decade, with lithium iron phosphate packs now the
default choice for four hour storage because of their cycle life and falling
cell prices across every major market.</p>
<p>   Flow batteries trade energy density for decoupled power and capacity,
which makes them attractive for sites that need eight hours or more of
discharge, and several vanadium electrolyte plants are now operating at the
hundred megawatt hour scale in commercial service.</p>
<p></p>
<p>Thermal storage takes a different route entirely, banking heat in molten
salt or crushed rock and returning it through a turbine, an approach that
pairs naturally with concentrated solar plants and with industrial process
heat loads that never needed electricity in the first place.</p>
</article>
<footer><p> </p></footer>
</body></html>`

func TestDirectFetch(t *testing.T) {
	var gotUA, gotAccept string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		gotAccept = r.Header.Get("Accept")
		w.Write([]byte(articlePage))
	}))
	defer srv.Close()

	text, err := NewDirect().Fetch(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if gotUA != "Mozilla/5.0" {
		t.Errorf("user agent = %q, want Mozilla/5.0", gotUA)
	}
	if gotAccept != "text/html" {
		t.Errorf("accept = %q, want text/html", gotAccept)
	}

	lines := strings.Split(text, "\n")
	if len(lines) != 3 {
		t.Fatalf("got %d paragraphs, want 3:\n%s", len(lines), text)
	}
	if !strings.HasPrefix(lines[0], "Grid-scale batteries") {
		t.Errorf("first paragraph = %q", lines[0])
	}
	if !strings.HasPrefix(lines[1], "Flow batteries") {
		t.Errorf("second paragraph = %q", lines[1])
	}
	if !strings.HasPrefix(lines[2], "Thermal storage") {
		t.Errorf("third paragraph = %q", lines[2])
	}
}

func TestDirectFetchHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "later", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	if _, err := NewDirect().Fetch(context.Background(), srv.URL); err == nil {
		t.Fatal("expected error for 503 response")
	}
}

func TestArticleFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(articlePage))
	}))
	defer srv.Close()

	text, err := NewArticle().Fetch(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if !strings.Contains(text, "Flow batteries") {
		t.Errorf("article text missing body content:\n%s", text)
	}
	if strings.Contains(text, "home") {
		t.Errorf("article text kept navigation chrome:\n%s", text)
	}
}
