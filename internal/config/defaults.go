package config

const (
	defaultIncomingDir      = "~/.local/share/spectra/incoming"
	defaultStagingDir       = "~/.local/share/spectra/staging"
	defaultLibraryDir       = "~/spectra-library"
	defaultLogDir           = "~/.local/share/spectra/logs"
	defaultFetchCacheDir    = "~/.cache/spectra/archive"
	defaultAPIBind          = "127.0.0.1:7491"
	defaultLogFormat        = "console"
	defaultLogLevel         = "info"
	defaultLogRetentionDays = 60

	defaultMASTBaseURL   = "https://archive.stsci.edu/hlsps/reference-atlases/cdbs/current_calspec"
	defaultSIMBADBaseURL = "https://simbad.cds.unistra.fr/simbad/sim-tap"
	defaultSDSSBaseURL   = "https://skyserver.sdss.org/dr17/SkyServerWS"
	defaultESOBaseURL    = "https://archive.eso.org/tap_obs"
	defaultNISTBaseURL   = "https://physics.nist.gov/cgi-bin/ASD"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			IncomingDir: defaultIncomingDir,
			StagingDir:  defaultStagingDir,
			LibraryDir:  defaultLibraryDir,
			LogDir:      defaultLogDir,
			APIBind:     defaultAPIBind,
		},
		Workflow: Workflow{
			QueuePollInterval:  5,
			ErrorRetryInterval: 10,
			HeartbeatInterval:  15,
			HeartbeatTimeout:   120,
			WatchSettleSeconds: 3,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
		Ingest: Ingest{
			Extensions: []string{".fits", ".fit", ".fts", ".csv", ".tsv", ".txt", ".dat", ".jdx", ".dx"},
			MaxFileMiB: 512,
		},
		Normalize: Normalize{
			FluxMode: "none",
		},
		Archives: Archives{
			RequestTimeout: 30,
			MAST:           ArchiveEndpoint{Enabled: true, BaseURL: defaultMASTBaseURL},
			SIMBAD:         ArchiveEndpoint{Enabled: true, BaseURL: defaultSIMBADBaseURL},
			SDSS:           ArchiveEndpoint{Enabled: true, BaseURL: defaultSDSSBaseURL},
			ESO:            ArchiveEndpoint{Enabled: false, BaseURL: defaultESOBaseURL},
			NIST:           ArchiveEndpoint{Enabled: true, BaseURL: defaultNISTBaseURL},
		},
		FetchCache: FetchCache{
			Enabled: true,
			Dir:     defaultFetchCacheDir,
			MaxMiB:  2048,
		},
		Notifications: Notifications{
			RequestTimeout:     10,
			Ingest:             true,
			Review:             true,
			Errors:             true,
			Queue:              true,
			DedupWindowSeconds: 600,
		},
	}
}
