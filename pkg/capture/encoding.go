package capture

const DefaultMimeType = "audio/webm"

// PreferredMimeTypes is tried in order; the first supported one is used.
var PreferredMimeTypes = []string{
	"audio/webm;codecs=opus",
	"audio/webm",
	"audio/ogg;codecs=opus",
	"audio/ogg",
}

func SelectMimeType(isSupported func(mimeType string) bool) string {
	if isSupported == nil {
		return DefaultMimeType
	}
	for _, mimeType := range PreferredMimeTypes {
		if isSupported(mimeType) {
			return mimeType
		}
	}
	return DefaultMimeType
}
