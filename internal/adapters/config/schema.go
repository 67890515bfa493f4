package config

// batchFile is the on-disk shape of remap.yaml.
type batchFile struct {
	Version     int            `koanf:"version"`
	Mappings    string         `koanf:"mappings"`
	Namespaces  namespacesDTO  `koanf:"namespaces"`
	Classpath   []string       `koanf:"classpath"`
	Parallelism int            `koanf:"parallelism"`
	SourceSets  []sourceSetDTO `koanf:"sourceSets"`
	Archives    []archiveDTO   `koanf:"archives"`
}

type namespacesDTO struct {
	Source string `koanf:"source"`
	Target string `koanf:"target"`
}

type sourceSetDTO struct {
	Name          string   `koanf:"name"`
	ResourceRoots []string `koanf:"resourceRoots"`
	Refmap        string   `koanf:"refmap"`
	ConfigPattern string   `koanf:"configPattern"`
}

type archiveDTO struct {
	Name                    string            `koanf:"name"`
	Input                   string            `koanf:"input"`
	Output                  string            `koanf:"output"`
	Platform                string            `koanf:"platform"`
	Classpath               []string          `koanf:"classpath"`
	Nested                  []nestedDTO       `koanf:"nested"`
	InjectWidener           string            `koanf:"injectWidener"`
	ConvertWideners         []string          `koanf:"convertWideners"`
	ClientOnlyClasses       []string          `koanf:"clientOnlyClasses"`
	Manifest                map[string]string `koanf:"manifest"`
	ReadConfigsFromManifest bool              `koanf:"readConfigsFromManifest"`
}

type nestedDTO struct {
	Path string `koanf:"path"`
	Name string `koanf:"name"`
}
