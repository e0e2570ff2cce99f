package osm

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"
)

// Credentials is the result of reading a password file. A nil field means
// the file did not supply that value and the current setting stays.
type Credentials struct {
	Username *string
	Password *string
}

// ResolveCredentials reads a password file and resolves the username and
// password it supplies.
//
// A password file holds username:password pairs, one per line. Lines
// starting with '#' are comments.
//
//	# Example password file.
//	fredfs@example.com:Wilma4evah
//	barney@example.net:B3ttyRawks
//
// A file with a single uncommented line, or a comment followed by a single
// uncommented line, supplies both username and password. With any other
// layout only the password of the line whose username equals
// currentUsername is used; when several lines match, the last one wins.
func ResolveCredentials(path, currentUsername string) (Credentials, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Credentials{}, newError(CodeUnreadableFile, ErrUnreadableFile.Message, path, err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return Credentials{}, newError(CodeUnreadableFile, ErrUnreadableFile.Message, path, fmt.Errorf("file is empty"))
	}
	creds, err := ParseCredentials(bytes.NewReader(data), currentUsername)
	if err != nil {
		if e, ok := err.(*Error); ok && e.Details != "" {
			e.Details = path + ": " + e.Details
		}
		return Credentials{}, err
	}
	return creds, nil
}

// ParseCredentials applies the password file rules to r without touching
// the filesystem. See ResolveCredentials.
func ParseCredentials(r io.Reader, currentUsername string) (Credentials, error) {
	var lines []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		lines = append(lines, line)
	}
	if err := sc.Err(); err != nil {
		return Credentials{}, newError(CodeUnreadableFile, ErrUnreadableFile.Message, "", err)
	}
	if len(lines) == 0 {
		return Credentials{}, newError(CodeUnreadableFile, ErrUnreadableFile.Message, "", fmt.Errorf("no credentials"))
	}

	switch len(lines) {
	case 1:
		if isComment(lines[0]) {
			return Credentials{}, nil
		}
		return pairFromLine(lines[0], 1)
	case 2:
		if isComment(lines[0]) && !isComment(lines[1]) {
			return pairFromLine(lines[1], 2)
		}
		return Credentials{}, nil
	}

	var creds Credentials
	for i, line := range lines {
		if isComment(line) {
			continue
		}
		user, pwd, err := splitLine(line, i+1)
		if err != nil {
			return Credentials{}, err
		}
		if currentUsername != "" && user == currentUsername {
			creds.Password = &pwd
		}
	}
	return creds, nil
}

func isComment(line string) bool {
	return strings.HasPrefix(line, "#")
}

func pairFromLine(line string, n int) (Credentials, error) {
	user, pwd, err := splitLine(line, n)
	if err != nil {
		return Credentials{}, err
	}
	return Credentials{Username: &user, Password: &pwd}, nil
}

// splitLine splits on the first ':' so passwords may contain colons.
func splitLine(line string, n int) (string, string, error) {
	user, pwd, ok := strings.Cut(line, ":")
	if !ok {
		return "", "", newError(CodeMalformedCredentials, ErrMalformedCredentials.Message, fmt.Sprintf("entry %d has no ':' separator", n), nil)
	}
	return user, pwd, nil
}
