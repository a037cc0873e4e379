package driven

// ConfigStore is a key-value view of the settings file. Keys use dot
// notation ("retrieval.top_k"); typed getters return the zero value when the
// key is missing or holds another type.
type ConfigStore interface {
	Get(key string) (any, bool)
	GetString(key string) string
	GetInt(key string) int

	// GetFloat also accepts integer values.
	GetFloat(key string) float64
	GetBool(key string) bool
	GetStringSlice(key string) []string

	// GetTables reads an array of tables such as [[providers]].
	GetTables(key string) []map[string]any

	// Set stores value and persists it.
	Set(key string, value any) error
	Save() error

	// Load re-reads storage, discarding unsaved values.
	Load() error

	// Path locates the backing file, for messages shown to the user.
	Path() string
}
