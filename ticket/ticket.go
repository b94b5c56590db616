// Package ticket defines the signed envelope an orchestrator uses to ship a
// rendezvous identifier to the other ranks. Participants verify the envelope
// before ingesting the identifier, so a compromised exchange cannot steer a
// process into a foreign communication group.
//
// The rendering is canonical: for a given ticket there is exactly one valid
// byte sequence, and Parse rejects anything else. Exchange payloads can
// therefore be compared byte-for-byte.
package ticket

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"
	"time"

	"commlink.dev/rendezvous/rendezvous"
)

// header is the first line of every canonical ticket.
const header = "RDZV-TICKET/1.0"

// Ticket carries a rendezvous identifier and the metadata participants need
// to join the right group.
//
// IssuerKey uses the encoding <alg>:<base64 raw public key> with alg one of
// ed25519, dilithium3. Signature is base64. CreatedAt is truncated to whole
// seconds in UTC by Render.
type Ticket struct {
	Job       string
	GroupSize int
	ID        rendezvous.UniqueID
	CreatedAt time.Time

	IssuerKey    string
	HashAlg      string
	SignatureAlg string
	Signature    string
}

func (t *Ticket) validate() error {
	if t == nil {
		return newError(KindValidation, "nil ticket")
	}
	if t.Job == "" {
		return newError(KindValidation, "missing Job")
	}
	if strings.ContainsAny(t.Job, "\n\r:") || strings.TrimSpace(t.Job) != t.Job {
		return newError(KindValidation, fmt.Sprintf("invalid Job %q", t.Job))
	}
	if t.GroupSize < 1 {
		return newError(KindValidation, fmt.Sprintf("Group-Size must be positive, got %d", t.GroupSize))
	}
	if t.CreatedAt.IsZero() {
		return newError(KindValidation, "missing Created-At")
	}
	return nil
}

// Render returns the canonical bytes for t, including the signature fields
// when present. Tickets are usually signed first; Render on an unsigned
// ticket produces the exact byte scope Sign operates on.
func (t *Ticket) Render() ([]byte, error) {
	if err := t.validate(); err != nil {
		return nil, err
	}
	var b bytes.Buffer
	b.WriteString(header)
	b.WriteByte('\n')
	writePair(&b, "Job", t.Job)
	writePair(&b, "Group-Size", strconv.Itoa(t.GroupSize))
	writePair(&b, "Unique-ID", base64.StdEncoding.EncodeToString(t.ID[:]))
	writePair(&b, "Created-At", t.CreatedAt.UTC().Truncate(time.Second).Format(time.RFC3339))
	if t.Signature != "" {
		writePair(&b, "Issuer-Key", t.IssuerKey)
		writePair(&b, "Hash-Alg", t.HashAlg)
		writePair(&b, "Signature-Alg", t.SignatureAlg)
		writePair(&b, "Signature", t.Signature)
	}
	return b.Bytes(), nil
}

func writePair(b *bytes.Buffer, key, value string) {
	b.WriteString(key)
	b.WriteString(": ")
	b.WriteString(value)
	b.WriteByte('\n')
}

// signedScope returns the canonical bytes covered by the signature: the
// header and the four payload fields, independent of any signature fields.
func (t *Ticket) signedScope() ([]byte, error) {
	unsigned := *t
	unsigned.IssuerKey = ""
	unsigned.HashAlg = ""
	unsigned.SignatureAlg = ""
	unsigned.Signature = ""
	return unsigned.Render()
}

// Parse decodes canonical ticket bytes. It is strict: LF line endings only,
// exact field order, no BOM, no trailing whitespace, one trailing newline.
func Parse(data []byte) (*Ticket, error) {
	if bytes.HasPrefix(data, []byte{0xEF, 0xBB, 0xBF}) {
		return nil, newError(KindParse, "BOM not allowed")
	}
	if bytes.Contains(data, []byte("\r")) {
		return nil, newError(KindParse, "CR line endings not allowed")
	}
	if len(data) == 0 || data[len(data)-1] != '\n' {
		return nil, newError(KindParse, "ticket must end with a newline")
	}

	lines := strings.Split(strings.TrimSuffix(string(data), "\n"), "\n")
	if lines[0] != header {
		return nil, newError(KindParse, fmt.Sprintf("bad header %q", lines[0]))
	}
	body := lines[1:]
	// Four payload fields, optionally followed by four signature fields.
	if len(body) != 4 && len(body) != 8 {
		return nil, newError(KindParse, fmt.Sprintf("expected 4 or 8 fields, got %d", len(body)))
	}

	want := []string{"Job", "Group-Size", "Unique-ID", "Created-At",
		"Issuer-Key", "Hash-Alg", "Signature-Alg", "Signature"}
	values := make([]string, len(body))
	for i, line := range body {
		key, value, ok := strings.Cut(line, ": ")
		if !ok || key != want[i] {
			return nil, newError(KindParse, fmt.Sprintf("line %d: expected %q field", i+2, want[i]))
		}
		if value != strings.TrimSpace(value) || value == "" {
			return nil, newError(KindParse, fmt.Sprintf("line %d: malformed value", i+2))
		}
		values[i] = value
	}

	size, err := strconv.Atoi(values[1])
	if err != nil {
		return nil, wrapError(KindParse, "invalid Group-Size", err)
	}
	idRaw, err := base64.StdEncoding.DecodeString(values[2])
	if err != nil {
		return nil, wrapError(KindParse, "invalid Unique-ID base64", err)
	}
	if len(idRaw) != rendezvous.UniqueIDBytes {
		return nil, newError(KindParse,
			fmt.Sprintf("Unique-ID must decode to %d bytes, got %d", rendezvous.UniqueIDBytes, len(idRaw)))
	}
	createdAt, err := time.Parse(time.RFC3339, values[3])
	if err != nil {
		return nil, wrapError(KindParse, "invalid Created-At", err)
	}

	t := &Ticket{
		Job:       values[0],
		GroupSize: size,
		CreatedAt: createdAt,
	}
	copy(t.ID[:], idRaw)
	if len(body) == 8 {
		t.IssuerKey = values[4]
		t.HashAlg = values[5]
		t.SignatureAlg = values[6]
		t.Signature = values[7]
	}
	if err := t.validate(); err != nil {
		return nil, err
	}

	// Canonicalization cannot be bypassed: re-rendering must reproduce the input.
	rendered, err := t.Render()
	if err != nil {
		return nil, err
	}
	if !bytes.Equal(rendered, data) {
		return nil, newError(KindParse, "ticket bytes are not canonical")
	}
	return t, nil
}
