package requirements

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// pages serves fixed HTML bodies by path; unknown paths return 404.
func pages(t *testing.T, bodies map[string]string) (*httptest.Server, *Fetcher) {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ua := r.Header.Get("User-Agent"); ua != "test-agent" {
			t.Errorf("User-Agent = %q, want test-agent", ua)
		}
		body, ok := bodies[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv, NewFetcher(srv.Client(), "test-agent")
}

const canadaPage = `<html><body><main>
<section id="get-documents">
  <h2>Get your documents ready</h2>
  <ul>
    <li>a <strong>letter of acceptance</strong> from your DLI</li>
    <li>a Provincial Attestation Letter: upload your PAL in the portal</li>
    <li>proof of financial support</li>
    <li>We won't process incomplete applications</li>
    <li>Include as many of the documents needed as you can</li>
    <li>a valid passport</li>
  </ul>
</section>
<ul><li>unrelated footer item</li></ul>
</main></body></html>`

func TestCanadaScraper(t *testing.T) {
	t.Parallel()
	srv, f := pages(t, map[string]string{"/apply": canadaPage})

	got, err := CanadaScraper{ApplyURL: srv.URL + "/apply", GuideURL: srv.URL + "/guide"}.Scrape(context.Background(), f)
	if err != nil {
		t.Fatalf("Scrape() error = %v", err)
	}

	want := []string{
		"a letter of acceptance from your DLI",
		"proof of financial support",
		"All required supporting documents",
		"a valid passport",
	}
	if diff := cmp.Diff(want, got.Documents); diff != "" {
		t.Errorf("documents mismatch (-want +got):\n%s", diff)
	}
	if got.VisaType != "Study Permit" || len(got.OfficialLinks) != 2 {
		t.Errorf("got = %+v", got)
	}
}

func TestCanadaScraperTooFewDocuments(t *testing.T) {
	t.Parallel()
	srv, f := pages(t, map[string]string{
		"/apply": `<section id="get-documents"><ul><li>a valid passport</li></ul></section>`,
	})

	_, err := CanadaScraper{ApplyURL: srv.URL + "/apply"}.Scrape(context.Background(), f)
	if !errors.Is(err, errTooFewDocuments) {
		t.Fatalf("Scrape() error = %v, want errTooFewDocuments", err)
	}
}

func TestUKScraperFiltersByKeyword(t *testing.T) {
	t.Parallel()

	var items strings.Builder
	for i := 0; i < 15; i++ {
		items.WriteString("<li>Pay the healthcare surcharge instalment ")
		items.WriteString(strings.Repeat("x", i+1))
		items.WriteString("</li>")
	}
	page := `<html><body><nav><ul><li>Passport renewals</li></ul></nav><main>
<ul>
  <li>a current passport or other valid travel documentation</li>
  <li>a Confirmation of Acceptance for Studies (CAS)</li>
  <li>Cookies on GOV.UK</li>
</ul>
<ul>` + items.String() + `</ul>
</main></body></html>`
	srv, f := pages(t, map[string]string{"/student-visa": page})

	got, err := UKScraper{URL: srv.URL + "/student-visa"}.Scrape(context.Background(), f)
	if err != nil {
		t.Fatalf("Scrape() error = %v", err)
	}
	if len(got.Documents) != 12 {
		t.Fatalf("documents = %d, want capped at 12", len(got.Documents))
	}
	if got.Documents[0] != "a current passport or other valid travel documentation" {
		t.Errorf("first document = %q", got.Documents[0])
	}
	for _, d := range got.Documents {
		if strings.Contains(d, "Cookies") || d == "Passport renewals" {
			t.Errorf("unexpected document %q", d)
		}
	}
}

const usaPage = `<html><body>
<h2>Gather Required Documentation</h2>
<p>Gather and prepare the following:</p>
<ul>
  <li>Passport valid for travel to the United States</li>
  <li>Nonimmigrant Visa Application, Form DS-160 confirmation page</li>
  <li>Short</li>
  <li>Photo uploaded while completing the online form</li>
</ul>
<p>Students may be issued visas up to 365 days before the start date.</p>
<table>
  <tr><th>Type</th><th>Purpose</th></tr>
  <tr><td>F-1</td><td>Academic study</td></tr>
  <tr><td>M-1</td><td>Vocational study</td></tr>
</table>
</body></html>`

func TestUSAScraper(t *testing.T) {
	t.Parallel()
	srv, f := pages(t, map[string]string{"/state": usaPage})

	got, err := USAScraper{StateDeptURL: srv.URL + "/state", USAGovURL: srv.URL + "/gov"}.Scrape(context.Background(), f)
	if err != nil {
		t.Fatalf("Scrape() error = %v", err)
	}

	want := []string{
		"Valid passport (with 6+ months validity beyond stay)",
		"DS-160 confirmation page",
		"Passport-style photograph meeting requirements",
		"Form I-20 from SEVP-approved school",
		"SEVIS fee payment receipt",
		"Proof of financial support for tuition/living expenses",
		"Academic transcripts and diplomas",
	}
	if diff := cmp.Diff(want, got.Documents); diff != "" {
		t.Errorf("documents mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"F-1: Academic study", "M-1: Vocational study"}, got.VisaTypes); diff != "" {
		t.Errorf("visa types mismatch (-want +got):\n%s", diff)
	}
	if !strings.HasPrefix(got.Timeline, "Apply up to 12 months") {
		t.Errorf("timeline = %q", got.Timeline)
	}
	if got.Fees == "" || len(got.SpecialNotes) == 0 {
		t.Errorf("fees/notes missing: %+v", got)
	}
}

func TestUSAScraperUsesSecondarySource(t *testing.T) {
	t.Parallel()
	srv, f := pages(t, map[string]string{
		"/state": `<html><body><h2>Something else</h2></body></html>`,
		"/gov": `<html><body><h2>Student visa requirements</h2><ul>
			<li>Acceptance at a SEVP-approved school</li><li>Passport</li></ul></body></html>`,
	})

	got, err := USAScraper{StateDeptURL: srv.URL + "/state", USAGovURL: srv.URL + "/gov"}.Scrape(context.Background(), f)
	if err != nil {
		t.Fatalf("Scrape() error = %v", err)
	}
	if got.Documents[0] != "Acceptance at a SEVP-approved school" {
		t.Errorf("documents = %v", got.Documents)
	}
	if got.VisaType != "F-1 (Academic Studies)" {
		t.Errorf("visa type = %q, want default F-1", got.VisaType)
	}
}

func TestGermanyScraperMapsDocuments(t *testing.T) {
	t.Parallel()
	page := `<html><body>
<section>
  <h2>Which documents do I need?</h2>
  <ul>
    <li>Proof of health insurance[1]</li>
    <li>Letter of admission from the university</li>
    <li>Short</li>
  </ul>
</section>
</body></html>`
	srv, f := pages(t, map[string]string{"/make-it": page})

	got, err := GermanyScraper{MakeItURL: srv.URL + "/make-it", FFOURL: srv.URL + "/ffo"}.Scrape(context.Background(), f)
	if err != nil {
		t.Fatalf("Scrape() error = %v", err)
	}
	if len(got.Documents) != 11 {
		t.Fatalf("documents = %d, want all 11 standard documents", len(got.Documents))
	}
	if got.Documents[0] != "Health insurance coverage confirmation" ||
		got.Documents[1] != "University admission letter (Zulassungsbescheid)" {
		t.Errorf("scraped documents should lead: %v", got.Documents[:2])
	}
}

func TestGermanyScraperFallsBackToForeignOffice(t *testing.T) {
	t.Parallel()
	srv, f := pages(t, map[string]string{
		"/make-it": `<html><body><p>nothing here</p></body></html>`,
		"/ffo": `<html><body><div id="content"><table>
			<tr><td>Reisepass</td><td>gültig</td></tr>
		</table></div></body></html>`,
	})

	got, err := GermanyScraper{MakeItURL: srv.URL + "/make-it", FFOURL: srv.URL + "/ffo"}.Scrape(context.Background(), f)
	if err != nil {
		t.Fatalf("Scrape() error = %v", err)
	}
	if got.Documents[0] != "Valid passport (with 2+ blank pages)" {
		t.Errorf("documents = %v", got.Documents)
	}
}

func TestFetcherRejectsNonOK(t *testing.T) {
	t.Parallel()
	srv, f := pages(t, nil)

	if _, err := f.Document(context.Background(), srv.URL+"/missing"); err == nil {
		t.Fatal("expected error for 404")
	}
}
