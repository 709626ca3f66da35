package config

const (
	defaultWorkDir   = "~/.local/share/revoice/work"
	defaultOutputDir = "~/.local/share/revoice/output"
	defaultLogDir    = "~/.local/share/revoice/logs"

	defaultTranscriptionBaseURL = "https://api.openai.com/v1"
	defaultTranscriptionModel   = "whisper-1"
	defaultTranscriptionTimeout = 120

	defaultVoiceBaseURL           = "https://api.elevenlabs.io/v1"
	defaultVoiceModelID           = "eleven_multilingual_v2"
	defaultVoiceStability         = 0.55
	defaultVoiceDialogueStability = 0.35
	defaultVoiceSimilarityBoost   = 0.7
	defaultVoiceStyle             = 0.0
	defaultCloneTimeoutSeconds    = 60
	defaultSynthTimeoutSeconds    = 120
	defaultVoiceMaxConcurrent     = 3
	defaultLocalEngine            = "espeak-ng"

	defaultDiarizationModelCommand  = "python3"
	defaultNoiseFloorDB             = -30.0
	defaultMinSilenceSeconds        = 0.5
	defaultAlternateAfterSeconds    = 3.0
	defaultDiarizationTimeout       = 300
	defaultRetryAttempts            = 3
	defaultRetryBaseSeconds         = 1
	defaultProbeTimeoutSeconds      = 15
	defaultTempRetentionHours       = 24
	defaultLogFormat                = "auto"
	defaultLogLevel                 = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			WorkDir:   defaultWorkDir,
			OutputDir: defaultOutputDir,
			LogDir:    defaultLogDir,
		},
		Transcription: Transcription{
			BaseURL:        defaultTranscriptionBaseURL,
			Model:          defaultTranscriptionModel,
			TimeoutSeconds: defaultTranscriptionTimeout,
		},
		Voice: Voice{
			BaseURL:             defaultVoiceBaseURL,
			ModelID:             defaultVoiceModelID,
			Stability:           defaultVoiceStability,
			DialogueStability:   defaultVoiceDialogueStability,
			SimilarityBoost:     defaultVoiceSimilarityBoost,
			Style:               defaultVoiceStyle,
			CloneTimeoutSeconds: defaultCloneTimeoutSeconds,
			SynthTimeoutSeconds: defaultSynthTimeoutSeconds,
			MaxConcurrent:       defaultVoiceMaxConcurrent,
			LocalEngine:         defaultLocalEngine,
		},
		Diarization: Diarization{
			ModelCommand:          defaultDiarizationModelCommand,
			NoiseFloorDB:          defaultNoiseFloorDB,
			MinSilenceSeconds:     defaultMinSilenceSeconds,
			AlternateAfterSeconds: defaultAlternateAfterSeconds,
			TimeoutSeconds:        defaultDiarizationTimeout,
		},
		Workflow: Workflow{
			RetryAttempts:       defaultRetryAttempts,
			RetryBaseSeconds:    defaultRetryBaseSeconds,
			ProbeTimeoutSeconds: defaultProbeTimeoutSeconds,
			TempRetentionHours:  defaultTempRetentionHours,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
