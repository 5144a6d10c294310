package token

import "strings"

// CertificateChain formats a PEM certificate for the x5c token header:
// the marker lines are stripped and the base64 body is joined into a
// single entry. An empty or marker-only input yields an empty chain.
func CertificateChain(certPEM string) []string {
	var body strings.Builder
	for _, line := range strings.Split(certPEM, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.Contains(line, "-----") {
			continue
		}
		body.WriteString(line)
	}

	if body.Len() == 0 {
		return []string{}
	}
	return []string{body.String()}
}
