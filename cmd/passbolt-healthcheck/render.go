package main

import (
	"fmt"
	"io"

	passbolt "github.com/nimdassdev/passbolt-api/pkg/sdk"
)

// printer accumulates doctor-style output. Only fail lines count towards the
// exit code; warnings are advisory.
type printer struct {
	w        io.Writer
	failures int
	warnings int
}

func (p *printer) section(name string) {
	fmt.Fprintf(p.w, "\n %s\n\n", name)
}

func (p *printer) pass(format string, args ...any) {
	fmt.Fprintf(p.w, " [PASS] "+format+"\n", args...)
}

func (p *printer) warn(format string, args ...any) {
	p.warnings++
	fmt.Fprintf(p.w, " [WARN] "+format+"\n", args...)
}

func (p *printer) fail(format string, args ...any) {
	p.failures++
	fmt.Fprintf(p.w, " [FAIL] "+format+"\n", args...)
}

func (p *printer) info(format string, args ...any) {
	fmt.Fprintf(p.w, " [INFO] "+format+"\n", args...)
}

// check prints a pass or fail line depending on ok.
func (p *printer) check(ok bool, passMsg, failMsg string) {
	if ok {
		p.pass("%s", passMsg)
	} else {
		p.fail("%s", failMsg)
	}
}

// checkWarn prints a pass or warn line depending on ok.
func (p *printer) checkWarn(ok bool, passMsg, warnMsg string) {
	if ok {
		p.pass("%s", passMsg)
	} else {
		p.warn("%s", warnMsg)
	}
}

// render writes the report in the healthcheck shell format and returns the
// number of failing checks.
func render(w io.Writer, r passbolt.Report) int {
	p := &printer{w: w}
	fmt.Fprintln(p.w, " Healthcheck shell")

	renderEnvironment(p, r.Environment)
	renderConfigFile(p, r.ConfigFile)
	renderCore(p, r.Core)
	renderSSL(p, r.SSL)
	renderDatabase(p, r.Database)
	renderGPG(p, r.GPG)
	renderApplication(p, r.Application)
	renderJWT(p, r.JWT)
	renderSMTPSettings(p, r.SMTPSettings)

	fmt.Fprintln(p.w)
	switch {
	case p.failures == 0 && p.warnings == 0:
		fmt.Fprintln(p.w, " No error found. Nice one sir!")
	case p.failures == 0:
		fmt.Fprintf(p.w, " No error found, %d warning(s). Nice one sir!\n", p.warnings)
	default:
		fmt.Fprintf(p.w, " %d error(s) found. Hang in there!\n", p.failures)
	}
	return p.failures
}

func renderEnvironment(p *printer, c *passbolt.EnvironmentChecks) {
	if c == nil {
		return
	}
	p.section("Environment")
	if c.GoVersion {
		p.pass("Go version %s meets the minimum requirement.", c.Info.GoVersion)
	} else {
		p.fail("Go version %s is below the supported minimum.", c.Info.GoVersion)
	}
	p.checkWarn(c.NextMinGoVersion,
		"The runtime also satisfies the next release's minimum version.",
		"The next passbolt release will require a newer Go runtime.")
	p.check(c.UnicodePatterns, "Unicode pattern matching is available.", "Unicode pattern matching is not available.")
	p.check(c.Multibyte, "Multibyte string handling is available.", "Multibyte string handling is not available.")
	p.check(c.Intl, "Internationalization support is available.", "Internationalization support is not available.")
	p.check(c.Openpgp, "OpenPGP support is available.", "OpenPGP support is not available.")
	p.check(c.Image, "Image processing support is available.", "Image processing support is not available.")
	p.check(c.TmpWritePath,
		"The temporary directory and its content are writable and not executable.",
		"The temporary directory and its content are not writable, or are executable.")
	p.check(c.LogWritePath, "The logs directory is writable.", "The logs directory is not writable.")
}

func renderConfigFile(p *printer, c *passbolt.ConfigFileChecks) {
	if c == nil {
		return
	}
	p.section("Config files")
	p.checkWarn(c.App,
		"The application config file is present.",
		"The application config file is missing, using defaults.")
	p.checkWarn(c.Passbolt,
		"The passbolt config file is present.",
		"The passbolt config file is missing, relying on environment variables.")
}

func renderCore(p *printer, c *passbolt.CoreChecks) {
	if c == nil {
		return
	}
	p.section("Core config")
	p.check(c.Cache, "Cache is working.", "The cache backend is not answering.")
	p.check(c.DebugDisabled, "Debug mode is off.", "Debug mode is on, turn it off in production.")
	p.check(c.Salt, "Unique security salt is set.", "The default security salt has not been replaced.")
	if c.FullBaseURL {
		p.pass("Full base url is set to %s.", c.Info.FullBaseURL)
	} else {
		p.fail("Full base url is not set.")
	}
	p.check(c.ValidFullBaseURL, "The full base url is a valid url.", "The full base url is not a valid url.")
	p.check(c.FullBaseURLReachable,
		"The status endpoint is reachable on the full base url.",
		"Could not reach the status endpoint on the full base url.")
}

func renderSSL(p *printer, c *passbolt.SSLChecks) {
	if c == nil {
		return
	}
	p.section("SSL certificate")
	p.check(c.PeerValid,
		"The SSL certificate is signed by a trusted authority.",
		"The SSL certificate cannot be verified against known authorities.")
	p.check(c.HostValid,
		"The hostname is covered by the certificate.",
		"The hostname does not match the certificate.")
	p.checkWarn(c.NotSelfSigned,
		"Not using a self-signed certificate.",
		"Using a self-signed certificate.")
	if c.Info != nil {
		p.info("%s", *c.Info)
	}
}

func renderDatabase(p *printer, c *passbolt.DatabaseChecks) {
	if c == nil {
		return
	}
	p.section("Database")
	p.check(c.Connect,
		"The application is able to connect to the database.",
		"The application is not able to connect to the database.")
	p.check(c.SupportedBackend, "The database backend is supported.", "The database backend is not supported.")
	if c.TablesPrefix {
		p.info("Table names carry a prefix.")
	}
	if c.TablesCount {
		p.pass("%d tables found.", c.Info.TablesCount)
	} else {
		p.fail("No table found.")
	}
	p.check(c.DefaultContent, "Some default content is present.", "The default content is missing.")
}

func renderGPG(p *printer, c *passbolt.GPGChecks) {
	if c == nil {
		return
	}
	p.section("GPG configuration")
	p.check(c.Lib, "The OpenPGP library is available.", "The OpenPGP library is not usable.")
	p.check(c.Home, "The GnuPG home directory exists.", "The GnuPG home directory does not exist.")
	p.check(c.HomeWritable, "The GnuPG home directory is writable.", "The GnuPG home directory is not writable.")
	p.check(c.Key, "A server key fingerprint is configured.", "No server key fingerprint is configured.")
	p.check(c.KeyNotDefault,
		"The server key is not the default one.",
		"Do not use the default server key in production.")
	p.check(c.KeyPublic, "The public key file is present.", "The public key file is missing.")
	p.check(c.KeyPublicReadable, "The public key file is readable.", "The public key file is not readable.")
	p.check(c.KeyPublicBlock, "The public key file contains a valid key block.", "The public key file does not contain a valid key block.")
	p.check(c.KeyPrivate, "The private key file is present.", "The private key file is missing.")
	p.check(c.KeyPrivateReadable, "The private key file is readable.", "The private key file is not readable.")
	p.check(c.KeyPrivateBlock, "The private key file contains a valid key block.", "The private key file does not contain a valid key block.")
	if c.KeyPublicFingerprint {
		p.pass("The public key matches the configured fingerprint %s.", c.Info.Fingerprint)
	} else {
		p.fail("The public key does not match the configured fingerprint.")
	}
	p.check(c.KeyPrivateFingerprint,
		"The private key matches the configured fingerprint.",
		"The private key does not match the configured fingerprint.")
	p.check(c.KeyPublicEmail,
		"The public key carries a valid email identity.",
		"The public key does not carry a valid email identity.")
	p.check(c.KeyPublicInKeyring,
		"The public and private keys form a pair.",
		"The public and private keys do not form a pair.")
	p.check(c.CanEncrypt, "The public key can encrypt a message.", "The public key cannot encrypt a message.")
	p.check(c.CanSign, "The private key can sign a message.", "The private key cannot sign a message.")
	p.check(c.CanEncryptSign, "The key pair can encrypt and sign together.", "The key pair cannot encrypt and sign together.")
	p.check(c.CanDecrypt, "The private key can decrypt a message.", "The private key cannot decrypt a message.")
	p.check(c.CanVerify, "The public key can verify a signature.", "The public key cannot verify a signature.")
	p.check(c.CanDecryptVerify, "The key pair can decrypt and verify together.", "The key pair cannot decrypt and verify together.")
}

func renderApplication(p *printer, c *passbolt.ApplicationChecks) {
	if c == nil {
		return
	}
	p.section("Application configuration")
	switch {
	case c.LatestVersion == nil:
		p.warn("Could not determine the latest released version.")
	case *c.LatestVersion:
		p.pass("Using the latest passbolt version (%s).", c.Info.CurrentVersion)
	default:
		p.warn("This installation is not up to date: using %s while %s is available.",
			c.Info.CurrentVersion, c.Info.RemoteVersion)
	}
	p.check(c.Schema, "The database schema is up to date.", "The database schema is not up to date.")
	p.checkWarn(c.RobotsIndexDisabled,
		"Search engine robots are told not to index content.",
		"Search engine robots are not told to stay away.")
	p.checkWarn(c.SslForce, "Passbolt is configured to force SSL.", "Passbolt is not configured to force SSL.")
	p.checkWarn(c.SslFullBaseURL,
		"The full base url uses https.",
		"The full base url does not use https.")
	p.check(c.SeleniumDisabled,
		"The automation endpoints are disabled.",
		"The automation endpoints are enabled, disable them in production.")
	if c.RegistrationClosed.IsSelfRegistrationPluginEnabled {
		provider := "unknown"
		if c.RegistrationClosed.SelfRegistrationProvider != nil {
			provider = *c.RegistrationClosed.SelfRegistrationProvider
		}
		p.info("Self registration is open through the %s provider.", provider)
	} else {
		p.pass("Registration is closed, only administrators can add users.")
	}
	p.checkWarn(c.HostAvailabilityCheckEnabled,
		"Host availability checking is enabled.",
		"Host availability checking is disabled.")
	p.checkWarn(c.JsProd,
		"Serving the compiled version of the javascript app.",
		"Not serving the compiled version of the javascript app.")
	p.checkWarn(c.EmailNotificationEnabled,
		"All email notifications are enabled.",
		"Some email notifications are disabled by the administrator.")
	p.check(c.AdminCount, "At least one administrator exists.", "No administrator account found.")
}

func renderJWT(p *printer, c *passbolt.JWTChecks) {
	if c == nil {
		return
	}
	p.section("JWT authentication")
	if !c.IsEnabled {
		p.info("JWT authentication is disabled.")
		return
	}
	p.pass("JWT authentication is enabled.")
	p.check(c.KeyPairValid, "A valid JWT key pair was found.", "A valid JWT key pair is missing.")
	p.check(c.JwtWritable, "The JWT keys directory is writable.", "The JWT keys directory is not writable.")
}

func renderSMTPSettings(p *printer, c *passbolt.SMTPSettingsChecks) {
	if c == nil {
		return
	}
	p.section("SMTP settings")
	if !c.IsEnabled {
		p.info("The SMTP settings plugin is disabled.")
		return
	}
	p.pass("The SMTP settings plugin is enabled.")
	p.checkWarn(c.AreEndpointsDisabled,
		"The SMTP settings endpoints are disabled.",
		"The SMTP settings endpoints are enabled, consider disabling them.")
	switch {
	case c.AreSettingsValid:
		p.pass("The SMTP settings stored in the database are valid.")
	case !c.IsInDb:
		p.warn("No SMTP settings in the database, using the file configuration.")
	default:
		msg := "The SMTP settings stored in the database are not usable."
		if c.ErrorMessage != nil {
			msg = *c.ErrorMessage
		}
		p.fail("%s", msg)
	}
	p.info("SMTP settings source: %s.", c.Source)
}
