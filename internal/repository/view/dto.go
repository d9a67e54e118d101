package view

// document is the root of a views YAML file.
type document struct {
	Forms []formDoc `yaml:"forms"`
	Views []viewDoc `yaml:"views"`
}

type formDoc struct {
	ID     string         `yaml:"id"`
	Title  string         `yaml:"title"`
	Fields []formFieldDoc `yaml:"fields"`
}

type formFieldDoc struct {
	ID    string `yaml:"id"`
	Label string `yaml:"label"`
	Type  string `yaml:"type"`
}

type viewDoc struct {
	ID       string      `yaml:"id"`
	Slug     string      `yaml:"slug"`
	Title    string      `yaml:"title"`
	Form     string      `yaml:"form"`
	Settings settingsDoc `yaml:"settings"`
	Fields   []fieldDoc  `yaml:"fields"`
	Search   searchDoc   `yaml:"search"`
}

type settingsDoc struct {
	Status           string    `yaml:"status"`
	RESTEnabled      *bool     `yaml:"rest_enabled"` // default: true
	Password         string    `yaml:"password"`
	EmbedOnly        bool      `yaml:"embed_only"`
	NoDirectAccess   bool      `yaml:"no_direct_access"`
	CSVEnabled       bool      `yaml:"csv_enabled"`
	TSVEnabled       bool      `yaml:"tsv_enabled"`
	ShowOnlyApproved bool      `yaml:"show_only_approved"`
	PageSize         int       `yaml:"page_size"`
	Sort             *sortDoc  `yaml:"sort"`
	SortOverridable  bool      `yaml:"sort_overridable"`
	Mode             string    `yaml:"mode"`
	UseLabels        bool      `yaml:"use_labels"`
	Export           exportDoc `yaml:"export"`
}

type sortDoc struct {
	Field     string `yaml:"field"`
	Direction string `yaml:"direction"`
}

type exportDoc struct {
	ExtraFields []string `yaml:"extra_fields"`
	Filename    string   `yaml:"filename"`
}

type fieldDoc struct {
	ID         string        `yaml:"id"`
	Type       string        `yaml:"type"`
	Position   string        `yaml:"position"`
	ShowAsLink bool          `yaml:"show_as_link"`
	Label      string        `yaml:"label"`
	Content    string        `yaml:"content"`
	Visibility visibilityDoc `yaml:"visibility"`
}

type visibilityDoc struct {
	LoggedInOnly bool   `yaml:"logged_in_only"`
	Capability   string `yaml:"capability"`
	ApprovedOnly bool   `yaml:"approved_only"`
}

type searchDoc struct {
	ModeOverridable bool      `yaml:"mode_overridable"`
	Areas           []areaDoc `yaml:"areas"`
}

type areaDoc struct {
	Position string           `yaml:"position"`
	Layout   string           `yaml:"layout"`
	Row      int              `yaml:"row"`
	Column   int              `yaml:"column"`
	Fields   []searchFieldDoc `yaml:"fields"`
}

type searchFieldDoc struct {
	Key                 string      `yaml:"key"`
	Type                string      `yaml:"type"`
	Label               string      `yaml:"label"`
	Choices             []choiceDoc `yaml:"choices"`
	OnlyExistingChoices bool        `yaml:"only_existing_choices"`
	Advanced            bool        `yaml:"advanced"`
}

type choiceDoc struct {
	Value string `yaml:"value"`
	Text  string `yaml:"text"`
}
