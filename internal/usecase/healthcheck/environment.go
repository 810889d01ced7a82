package healthcheck

import (
	"bytes"
	"context"
	"io"
	"os/exec"
	"regexp"
	"runtime"
	"strings"
	"unicode/utf8"

	goversion "github.com/hashicorp/go-version"
	"golang.org/x/crypto/openpgp/armor" //nolint:staticcheck // upstream keyring format
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

// Environment merges environment facts: the runtime version floor, library
// capability self-tests and the writable work directories.
func (s *Service) Environment(_ context.Context, report Report) Report {
	checks := &EnvironmentChecks{}

	current := strings.TrimPrefix(runtime.Version(), "go")
	checks.Info.GoVersion = current
	if v, err := goversion.NewVersion(current); err == nil {
		checks.GoVersion = v.GreaterThanOrEqual(s.minVersion)
		checks.NextMinGoVersion = v.GreaterThanOrEqual(s.nextMinVersion)
	}

	checks.UnicodePatterns = unicodePatternsOperable()
	checks.Multibyte = multibyteOperable()
	checks.Intl = intlOperable()
	checks.Openpgp = openpgpOperable()
	checks.Image = imageToolPresent()
	checks.TmpWritePath = treeWritableNoExec(s.settings.TmpPath)
	checks.LogWritePath = writable(s.settings.LogPath)

	return report.Merge(Report{Environment: checks})
}

// unicodePatternsOperable verifies the regexp engine handles Unicode
// character classes and literal multibyte patterns.
func unicodePatternsOperable() bool {
	re, err := regexp.Compile(`^\p{L}+$`)
	if err != nil || !re.MatchString("héllo") {
		return false
	}
	ok, err := regexp.MatchString("🔥", "a🔥b")
	return err == nil && ok
}

// multibyteOperable verifies rune-aware string handling and Unicode
// normalization.
func multibyteOperable() bool {
	if utf8.RuneCountInString("passbolt🔑") != 9 {
		return false
	}
	return norm.NFC.String("é") == "é"
}

// intlOperable verifies locale parsing and collation.
func intlOperable() bool {
	tag, err := language.Parse("fr-FR")
	if err != nil {
		return false
	}
	return collate.New(tag).CompareString("ancre", "bordure") < 0
}

// openpgpOperable verifies the OpenPGP armor codec round-trips.
func openpgpOperable() bool {
	var buf bytes.Buffer
	w, err := armor.Encode(&buf, "PGP MESSAGE", nil)
	if err != nil {
		return false
	}
	if _, err := w.Write([]byte("healthcheck")); err != nil {
		return false
	}
	if err := w.Close(); err != nil {
		return false
	}
	block, err := armor.Decode(&buf)
	if err != nil {
		return false
	}
	data, err := io.ReadAll(block.Body)
	return err == nil && string(data) == "healthcheck"
}

// imageToolPresent reports whether an image manipulation binary is on PATH,
// ImageMagick first, GraphicsMagick as fallback.
func imageToolPresent() bool {
	if _, err := exec.LookPath("convert"); err == nil {
		return true
	}
	_, err := exec.LookPath("gm")
	return err == nil
}
