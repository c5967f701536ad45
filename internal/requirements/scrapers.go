package requirements

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/ashureev/japa-advisor/internal/domain"
	"golang.org/x/net/html"
)

// errTooFewDocuments marks a page that parsed but yielded too little to trust.
var errTooFewDocuments = errors.New("too few documents found on page")

const minScrapedDocuments = 3

// Scraper extracts study visa requirements from a destination's official pages.
type Scraper interface {
	Scrape(ctx context.Context, f *Fetcher) (*domain.VisaRequirements, error)
}

// Official pages.
const (
	CanadaApplyURL = "https://www.canada.ca/en/immigration-refugees-citizenship/services/study-canada/study-permit/apply.html"
	CanadaGuideURL = "https://www.canada.ca/en/immigration-refugees-citizenship/services/application/application-forms-guides/" +
		"guide-5269-applying-study-permit-outside-canada.html"
	UKStudentVisaURL = "https://www.gov.uk/student-visa"
	USAStateDeptURL  = "https://travel.state.gov/content/travel/en/us-visas/study/student-visa.html"
	USAGovURL        = "https://www.usa.gov/student-visa"
	GermanyMakeItURL = "https://www.make-it-in-germany.com/en/visa-residence/student-visa"
	GermanyFFOURL    = "https://www.auswaertiges-amt.de/en/visa-service/visabestimmungen-node/studium-en/606846"
)

// CanadaScraper reads the "get documents" section of the study permit page.
type CanadaScraper struct {
	ApplyURL string
	GuideURL string
}

// Scrape implements Scraper.
func (s CanadaScraper) Scrape(ctx context.Context, f *Fetcher) (*domain.VisaRequirements, error) {
	doc, err := f.Document(ctx, s.ApplyURL)
	if err != nil {
		return nil, err
	}

	section := findFirst(doc, elementWithID("section", "get-documents"))
	if section == nil {
		return nil, fmt.Errorf("canada: documents section not found")
	}

	var documents []string
	for _, text := range listItems(section) {
		switch {
		case strings.Contains(text, "upload your PAL"):
			continue
		case strings.Contains(text, "as many of the documents needed"):
			text = "All required supporting documents"
		case strings.Contains(text, "We won't"), strings.Contains(text, "Waiting to submit"):
			continue
		}
		documents = append(documents, text)
	}
	documents = dedupe(documents)
	if len(documents) < minScrapedDocuments {
		return nil, fmt.Errorf("canada: %w (%d)", errTooFewDocuments, len(documents))
	}

	return &domain.VisaRequirements{
		Country:              "Canada",
		VisaType:             "Study Permit",
		LanguageRequirements: "IELTS/TOEFL/CELPIP required by institution",
		Timeline:             "Apply 3-6 months before program start",
		Documents:            truncate(documents, 6),
		OfficialLinks:        []string{s.ApplyURL, s.GuideURL},
	}, nil
}

var ukKeywords = []string{
	"passport", "confirmation", "financial", "english", "tuberculosis",
	"offer", "place", "support", "money", "funds", "pay", "course",
	"consent", "parents", "weeks", "before", "apply", "fee",
	"switch", "extend", "graduate", "stay",
}

// UKScraper reads list items from the gov.uk student visa guide.
type UKScraper struct {
	URL string
}

// Scrape implements Scraper.
func (s UKScraper) Scrape(ctx context.Context, f *Fetcher) (*domain.VisaRequirements, error) {
	doc, err := f.Document(ctx, s.URL)
	if err != nil {
		return nil, err
	}

	content := findFirst(doc, element("main"))
	if content == nil {
		return nil, fmt.Errorf("uk: main content not found")
	}

	var documents []string
	for _, ul := range findAll(content, element("ul")) {
		for _, text := range listItems(ul) {
			if containsAny(strings.ToLower(text), ukKeywords) {
				documents = append(documents, text)
			}
		}
	}
	documents = dedupe(documents)
	if len(documents) < minScrapedDocuments {
		return nil, fmt.Errorf("uk: %w (%d)", errTooFewDocuments, len(documents))
	}

	return &domain.VisaRequirements{
		Country:              "UK",
		VisaType:             "Student Visa",
		LanguageRequirements: "IELTS or equivalent required by institutions.",
		Timeline:             "Apply up to 6 months before your course starts.",
		Documents:            truncate(documents, 12),
		OfficialLinks:        []string{s.URL},
	}, nil
}

var (
	usaEssentials = []struct{ keyword, document string }{
		{"passport", "Valid passport (with 6+ months validity)"},
		{"i-20", "Form I-20 from SEVP-approved school"},
		{"ds-160", "DS-160 confirmation page"},
		{"sevis", "SEVIS fee payment receipt"},
		{"financial", "Proof of financial support for tuition/living expenses"},
		{"academic", "Academic transcripts and diplomas"},
	}
	usaEarlyEntry = regexp.MustCompile(`(?i)365 days before`)
)

// USAScraper reads the State Department student visa page and falls back
// to usa.gov for the document list.
type USAScraper struct {
	StateDeptURL string
	USAGovURL    string
}

// Scrape implements Scraper.
func (s USAScraper) Scrape(ctx context.Context, f *Fetcher) (*domain.VisaRequirements, error) {
	doc, err := f.Document(ctx, s.StateDeptURL)
	if err != nil {
		return nil, err
	}

	var documents []string
	if h := headingMatching(doc, "h2", equalFold("Gather Required Documentation")); h != nil {
		if ul := findNext(h, element("ul")); ul != nil {
			for _, text := range listItems(ul) {
				if len(text) > 15 {
					documents = append(documents, standardizeUSADocument(text))
				}
			}
		}
	}

	if len(documents) == 0 && s.USAGovURL != "" {
		documents = s.secondaryDocuments(ctx, f)
	}
	if len(documents) == 0 {
		return nil, fmt.Errorf("usa: %w (0)", errTooFewDocuments)
	}

	for _, essential := range usaEssentials {
		if !anyContains(documents, essential.keyword) {
			documents = append(documents, essential.document)
		}
	}

	timeline := "Apply 3-6 months before program start"
	if usaEarlyEntry.MatchString(textContent(doc)) {
		timeline = "Apply up to 12 months before program start (entry permitted 30 days before)"
	}

	visaTypes := usaVisaTypes(doc)
	if len(visaTypes) == 0 {
		visaTypes = []string{"F-1 (Academic Studies)", "M-1 (Vocational Studies)", "J-1 (Exchange Programs)"}
	}

	return &domain.VisaRequirements{
		Country:              "USA",
		VisaType:             visaTypes[0],
		VisaTypes:            visaTypes,
		LanguageRequirements: "TOEFL/IELTS/Duolingo required by institution",
		Timeline:             timeline,
		Fees:                 "$535 total ($350 SEVIS + $185 application)",
		Documents:            truncate(dedupe(documents), 12),
		OfficialLinks:        []string{s.StateDeptURL, s.USAGovURL},
		SpecialNotes: []string{
			"Enhanced social media screening during application",
			"Maintain full-time enrollment to keep visa status valid",
			"OPT available for 12 months post-graduation (36 months for STEM)",
		},
	}, nil
}

func (s USAScraper) secondaryDocuments(ctx context.Context, f *Fetcher) []string {
	doc, err := f.Document(ctx, s.USAGovURL)
	if err != nil {
		return nil
	}
	h := headingMatching(doc, "h2", equalFold("Student visa requirements"))
	if h == nil {
		return nil
	}
	ul := findNext(h, element("ul"))
	if ul == nil {
		return nil
	}
	return listItems(ul)
}

func standardizeUSADocument(text string) string {
	lower := strings.ToLower(text)
	switch {
	case strings.Contains(lower, "passport"):
		return "Valid passport (with 6+ months validity beyond stay)"
	case strings.Contains(lower, "form i-20"):
		return "Form I-20 (Certificate of Eligibility from SEVP-approved school)"
	case strings.Contains(lower, "ds-160"):
		return "DS-160 confirmation page"
	case strings.Contains(lower, "photo"):
		return "Passport-style photograph meeting requirements"
	default:
		return text
	}
}

func usaVisaTypes(doc *html.Node) []string {
	table := findFirst(doc, element("table"))
	if table == nil {
		return nil
	}
	var types []string
	for i, row := range findAll(table, element("tr")) {
		if i == 0 {
			continue // header
		}
		cells := findAll(row, element("td"))
		if len(cells) >= 2 {
			types = append(types, textContent(cells[0])+": "+textContent(cells[1]))
		}
	}
	return types
}

var (
	germanyDocuments = []struct {
		pattern  *regexp.Regexp
		document string
	}{
		{regexp.MustCompile(`(?i)passport|reisepass`), "Valid passport (with 2+ blank pages)"},
		{regexp.MustCompile(`(?i)admission|zulassung|acceptance`), "University admission letter (Zulassungsbescheid)"},
		{regexp.MustCompile(`(?i)financial|finan|blocked account`), "Proof of financial resources (€11,904/year in blocked account)"},
		{regexp.MustCompile(`(?i)insurance|krankenversicherung`), "Health insurance coverage confirmation"},
		{regexp.MustCompile(`(?i)application form|antragsformular`), "Completed visa application forms (2 copies)"},
		{regexp.MustCompile(`(?i)photo|bild|biometric`), "Biometric passport photos (35x45mm)"},
		{regexp.MustCompile(`(?i)academic|qualification|zeugnis`), "Academic qualifications (certified copies)"},
		{regexp.MustCompile(`(?i)curriculum vitae|lebenslauf|\bcv\b`), "Curriculum vitae (tabular format)"},
		{regexp.MustCompile(`(?i)motivation`), "Motivational letter explaining study plans"},
		{regexp.MustCompile(`(?i)language|sprachkenntnisse`), "Language proficiency certificate"},
		{regexp.MustCompile(`(?i)fee|gebühr`), "Fee payment confirmation (€75)"},
	}
	germanyDocumentsHeading = regexp.MustCompile(`(?i)documents.*need`)
	citationMarker          = regexp.MustCompile(`\[\d+\]`)
)

// GermanyScraper reads the document list from Make it in Germany and the
// Federal Foreign Office, then maps entries onto standard document names.
type GermanyScraper struct {
	MakeItURL string
	FFOURL    string
}

// Scrape implements Scraper.
func (s GermanyScraper) Scrape(ctx context.Context, f *Fetcher) (*domain.VisaRequirements, error) {
	doc, err := f.Document(ctx, s.MakeItURL)
	if err != nil {
		return nil, err
	}

	raw := germanyPrimaryDocuments(doc)
	if len(raw) == 0 && s.FFOURL != "" {
		if ffo, err := f.Document(ctx, s.FFOURL); err == nil {
			raw = germanyFFODocuments(ffo)
		}
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("germany: %w (0)", errTooFewDocuments)
	}

	var documents []string
	for _, text := range raw {
		for _, d := range germanyDocuments {
			if d.pattern.MatchString(text) {
				documents = append(documents, d.document)
				break
			}
		}
	}
	for _, d := range germanyDocuments {
		documents = append(documents, d.document)
	}

	return &domain.VisaRequirements{
		Country:              "Germany",
		VisaType:             "Student Visa",
		LanguageRequirements: "German: TestDaF/Goethe (B2-C1) or English: IELTS/TOEFL (university-specific)",
		Timeline:             "Apply 3-6 months before studies begin",
		Documents:            truncate(dedupe(documents), 12),
		OfficialLinks:        []string{s.MakeItURL, s.FFOURL},
	}, nil
}

func germanyPrimaryDocuments(doc *html.Node) []string {
	var section *html.Node
	if h := headingMatching(doc, "h2", germanyDocumentsHeading.MatchString); h != nil {
		section = ancestor(h, "section")
	}
	if section == nil {
		section = findFirst(doc, elementWithID("section", "documents"))
	}
	if section == nil {
		return nil
	}

	var out []string
	for _, text := range listItems(section) {
		text = strings.TrimSpace(citationMarker.ReplaceAllString(text, ""))
		if len(text) > 10 {
			out = append(out, text)
		}
	}
	return out
}

func germanyFFODocuments(doc *html.Node) []string {
	content := findFirst(doc, elementWithID("div", "content"))
	if content == nil {
		return nil
	}

	var out []string
	for _, row := range findAll(content, element("tr")) {
		cells := findAll(row, element("td"))
		if len(cells) >= 2 {
			out = append(out, textContent(cells[0])+": "+textContent(cells[1]))
		}
	}
	if len(out) > 0 {
		return out
	}
	for _, text := range listItems(content) {
		if len(text) > 30 {
			out = append(out, text)
		}
	}
	return out
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}

func anyContains(items []string, keyword string) bool {
	for _, item := range items {
		if strings.Contains(strings.ToLower(item), keyword) {
			return true
		}
	}
	return false
}

func equalFold(want string) func(string) bool {
	return func(got string) bool { return strings.EqualFold(strings.TrimSpace(got), want) }
}
