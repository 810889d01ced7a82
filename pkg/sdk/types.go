package passbolt

// Report is the healthcheck result, keyed by category. A nil category means
// the server did not run that probe.
type Report struct {
	Environment  *EnvironmentChecks  `json:"environment,omitempty"`
	ConfigFile   *ConfigFileChecks   `json:"configFile,omitempty"`
	Core         *CoreChecks         `json:"core,omitempty"`
	SSL          *SSLChecks          `json:"ssl,omitempty"`
	Database     *DatabaseChecks     `json:"database,omitempty"`
	GPG          *GPGChecks          `json:"gpg,omitempty"`
	Application  *ApplicationChecks  `json:"application,omitempty"`
	JWT          *JWTChecks          `json:"jwt,omitempty"`
	SMTPSettings *SMTPSettingsChecks `json:"smtpSettings,omitempty"`
}

// EnvironmentChecks covers the runtime the server executes in.
type EnvironmentChecks struct {
	GoVersion        bool            `json:"goVersion"`
	NextMinGoVersion bool            `json:"nextMinGoVersion"`
	Info             EnvironmentInfo `json:"info"`
	UnicodePatterns  bool            `json:"unicodePatterns"`
	Multibyte        bool            `json:"multibyte"`
	Intl             bool            `json:"intl"`
	Openpgp          bool            `json:"openpgp"`
	Image            bool            `json:"image"`
	TmpWritePath     bool            `json:"tmpWritePath"`
	LogWritePath     bool            `json:"logWritePath"`
}

// EnvironmentInfo carries informational environment values.
type EnvironmentInfo struct {
	GoVersion string `json:"goVersion"`
}

// ConfigFileChecks covers the presence of the two configuration files.
type ConfigFileChecks struct {
	App      bool `json:"app"`
	Passbolt bool `json:"passbolt"`
}

// CoreChecks covers core runtime configuration.
type CoreChecks struct {
	Cache                bool     `json:"cache"`
	DebugDisabled        bool     `json:"debugDisabled"`
	Salt                 bool     `json:"salt"`
	FullBaseURL          bool     `json:"fullBaseUrl"`
	ValidFullBaseURL     bool     `json:"validFullBaseUrl"`
	FullBaseURLReachable bool     `json:"fullBaseUrlReachable"`
	Info                 CoreInfo `json:"info"`
}

// CoreInfo carries informational core values.
type CoreInfo struct {
	FullBaseURL string `json:"fullBaseUrl"`
}

// SSLChecks covers the TLS certificate served on the full base URL.
type SSLChecks struct {
	PeerValid     bool    `json:"peerValid"`
	HostValid     bool    `json:"hostValid"`
	NotSelfSigned bool    `json:"notSelfSigned"`
	Info          *string `json:"info,omitempty"`
}

// DatabaseChecks covers database connectivity and contents.
type DatabaseChecks struct {
	Connect          bool         `json:"connect"`
	Info             DatabaseInfo `json:"info"`
	SupportedBackend bool         `json:"supportedBackend"`
	TablesPrefix     bool         `json:"tablesPrefix"`
	TablesCount      bool         `json:"tablesCount"`
	DefaultContent   bool         `json:"defaultContent"`
}

// DatabaseInfo carries informational database values.
type DatabaseInfo struct {
	TablesCount int `json:"tablesCount"`
}

// GPGChecks covers the server OpenPGP key pair and the crypto operations the
// server must be able to perform with it.
type GPGChecks struct {
	Lib                   bool    `json:"lib"`
	Home                  bool    `json:"gpgHome"`
	HomeWritable          bool    `json:"gpgHomeWritable"`
	Key                   bool    `json:"gpgKey"`
	KeyNotDefault         bool    `json:"gpgKeyNotDefault"`
	KeyPublic             bool    `json:"gpgKeyPublic"`
	KeyPublicReadable     bool    `json:"gpgKeyPublicReadable"`
	KeyPublicBlock        bool    `json:"gpgKeyPublicBlock"`
	KeyPrivate            bool    `json:"gpgKeyPrivate"`
	KeyPrivateReadable    bool    `json:"gpgKeyPrivateReadable"`
	KeyPrivateBlock       bool    `json:"gpgKeyPrivateBlock"`
	KeyPublicFingerprint  bool    `json:"gpgKeyPublicFingerprint"`
	KeyPrivateFingerprint bool    `json:"gpgKeyPrivateFingerprint"`
	KeyPublicEmail        bool    `json:"gpgKeyPublicEmail"`
	KeyPublicInKeyring    bool    `json:"gpgKeyPublicInKeyring"`
	CanEncrypt            bool    `json:"canEncrypt"`
	CanSign               bool    `json:"canSign"`
	CanEncryptSign        bool    `json:"canEncryptSign"`
	CanDecrypt            bool    `json:"canDecrypt"`
	CanVerify             bool    `json:"canVerify"`
	CanDecryptVerify      bool    `json:"canDecryptVerify"`
	Info                  GPGInfo `json:"info"`
}

// GPGInfo carries informational key values.
type GPGInfo struct {
	Fingerprint   string `json:"fingerprint"`
	GpgHome       string `json:"gpgHome"`
	GpgKeyPrivate string `json:"gpgKeyPrivate"`
}

// ApplicationChecks covers application level configuration and data.
type ApplicationChecks struct {
	Info                         ApplicationInfo    `json:"info"`
	LatestVersion                *bool              `json:"latestVersion"`
	Schema                       bool               `json:"schema"`
	RobotsIndexDisabled          bool               `json:"robotsIndexDisabled"`
	SslForce                     bool               `json:"sslForce"`
	SslFullBaseURL               bool               `json:"sslFullBaseUrl"`
	SeleniumDisabled             bool               `json:"seleniumDisabled"`
	RegistrationClosed           RegistrationClosed `json:"registrationClosed"`
	HostAvailabilityCheckEnabled bool               `json:"hostAvailabilityCheckEnabled"`
	JsProd                       bool               `json:"jsProd"`
	EmailNotificationEnabled     bool               `json:"emailNotificationEnabled"`
	AdminCount                   bool               `json:"adminCount"`
}

// ApplicationInfo carries version information. RemoteVersion is "undefined"
// until the release lookup succeeds; LatestVersion stays null for as long as
// the comparison cannot be made.
type ApplicationInfo struct {
	RemoteVersion  string `json:"remoteVersion"`
	CurrentVersion string `json:"currentVersion"`
}

// RegistrationClosed describes how public registration is handled.
type RegistrationClosed struct {
	IsSelfRegistrationPluginEnabled bool    `json:"isSelfRegistrationPluginEnabled"`
	SelfRegistrationProvider        *string `json:"selfRegistrationProvider"`
}

// JWTChecks covers JWT authentication keys.
type JWTChecks struct {
	IsEnabled    bool `json:"isEnabled"`
	KeyPairValid bool `json:"keyPairValid"`
	JwtWritable  bool `json:"jwtWritable"`
}

// Where SMTP settings were read from.
const (
	SMTPSourceDB        = "db"
	SMTPSourceFile      = "file"
	SMTPSourceUndefined = "undefined"
)

// SMTPSettingsChecks covers stored SMTP settings.
type SMTPSettingsChecks struct {
	IsEnabled            bool    `json:"isEnabled"`
	AreEndpointsDisabled bool    `json:"areEndpointsDisabled"`
	ErrorMessage         *string `json:"errorMessage"`
	Source               string  `json:"source"`
	IsInDb               bool    `json:"isInDb"`
	AreSettingsValid     bool    `json:"areSettingsValid"`
}
