package submission

import (
	"bytes"
	"encoding/json"
	"html"
	"regexp"
	"strings"
	"unicode/utf8"
)

// MaxDiagnosticLength bounds the raw payload kept for troubleshooting.
const MaxDiagnosticLength = 500

var (
	phpMarkers = []string{"fatal error", "parse error", "warning</b>:", "notice</b>:", "warning:", "notice:", "deprecated:"}
	phpError   = regexp.MustCompile(`(?m)((?:PHP )?(?:Fatal error|Parse error|Warning|Notice|Deprecated)):\s*(.+?)\s*$`)
	htmlTag    = regexp.MustCompile(`<[^>]*>`)
)

type envelope struct {
	Success *bool  `json:"success"`
	Message string `json:"message"`
	Error   string `json:"error"`
}

// Classify maps a request's response or transport error to exactly one Kind.
func Classify(resp *Response, err error) Result {
	if err != nil {
		return Result{Kind: KindNetworkError, Message: "network error", Diagnostic: Truncate(err.Error(), MaxDiagnosticLength)}
	}
	if resp == nil {
		return Result{Kind: KindNetworkError, Message: "no response"}
	}

	body := bytes.TrimSpace(bytes.TrimPrefix(resp.Body, []byte("\xef\xbb\xbf")))
	diagnostic := Truncate(string(body), MaxDiagnosticLength)

	if looksLikeHTML(body) || hasPHPMarker(body) {
		return Result{
			Kind:        KindMalformedResponse,
			Message:     "server returned an error page instead of JSON",
			ServerError: ExtractServerError(string(body)),
			Diagnostic:  diagnostic,
		}
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return Result{Kind: KindMalformedResponse, Message: "response is not valid JSON", Diagnostic: diagnostic}
	}
	if env.Success == nil {
		return Result{Kind: KindMalformedResponse, Message: "response has no success field", Diagnostic: diagnostic}
	}

	message := env.Message
	if message == "" {
		message = env.Error
	}
	if *env.Success {
		return Result{Kind: KindSuccess, Message: message}
	}
	return Result{Kind: KindServerRejected, Message: message, Diagnostic: diagnostic}
}

func looksLikeHTML(body []byte) bool {
	n := len(body)
	if n > 64 {
		n = 64
	}
	head := strings.ToLower(string(body[:n]))
	return strings.HasPrefix(head, "<!doctype") || strings.HasPrefix(head, "<html") || strings.HasPrefix(head, "<br")
}

func hasPHPMarker(body []byte) bool {
	if len(body) > 0 && (body[0] == '{' || body[0] == '[') && json.Valid(body) {
		return false
	}
	lower := strings.ToLower(string(body))
	for _, marker := range phpMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

// ExtractServerError returns the first PHP error line in body, or "".
func ExtractServerError(body string) string {
	text := html.UnescapeString(htmlTag.ReplaceAllString(body, ""))
	m := phpError.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	return Truncate(m[1]+": "+m[2], MaxDiagnosticLength)
}

// Truncate shortens s to at most max runes, marking the cut with "...".
func Truncate(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	return string(runes[:max-3]) + "..."
}
