package email

import (
	"bufio"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"time"

	"github.com/pkg/errors"
)

// FileFeed reads raw emails from a JSON-lines drop file. External collectors
// (an IMAP poller, a forwarding hook) append one JSON object per line; the
// feed re-reads the file on every fetch and filters by the since boundary.
// A missing file means no mail yet, not an error.
type FileFeed struct {
	path string
}

// rawEmailLine is the drop-file wire form of one message.
type rawEmailLine struct {
	ID         string    `json:"id"`
	From       string    `json:"from"`
	Subject    string    `json:"subject"`
	Body       string    `json:"body"`
	ReceivedAt time.Time `json:"received_at"`
}

func NewFileFeed(path string) *FileFeed {
	return &FileFeed{path: path}
}

// Fetch returns every message in the drop file received after since.
// Malformed lines are skipped with a warning so one bad append cannot
// block the whole feed.
func (f *FileFeed) Fetch(ctx context.Context, since time.Time) ([]*RawEmail, error) {
	file, err := os.Open(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.Wrapf(err, "open mail drop %s", f.path)
	}
	defer file.Close()

	var emails []*RawEmail
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNo := 0
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		lineNo++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var raw rawEmailLine
		if err := json.Unmarshal(line, &raw); err != nil {
			slog.Warn("skipping malformed mail drop line", "path", f.path, "line", lineNo, "error", err)
			continue
		}
		if raw.ID == "" || !raw.ReceivedAt.After(since) {
			continue
		}
		emails = append(emails, &RawEmail{
			ID:         raw.ID,
			From:       raw.From,
			Subject:    raw.Subject,
			Body:       raw.Body,
			ReceivedAt: raw.ReceivedAt,
		})
	}
	if err := scanner.Err(); err != nil {
		return emails, errors.Wrapf(err, "read mail drop %s", f.path)
	}
	return emails, nil
}
