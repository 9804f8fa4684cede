package mockapi

import (
	"testing"
)

func TestSlug(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"simple lowercase", "myproj", "myproj"},
		{"uppercase folded", "MyProj", "myproj"},
		{"spaces become hyphens", "My Cool API", "my-cool-api"},
		{"runs collapse", "a  --  b", "a-b"},
		{"leading and trailing trimmed", " hello ", "hello"},
		{"digits kept", "api v2", "api-v2"},
		{"symbols replaced", "foo@bar.com", "foo-bar-com"},
		{"empty", "", ""},
		{"only symbols", "!!!", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Slug(tt.in); got != tt.want {
				t.Errorf("Slug(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestFieldTypeIsFileKind(t *testing.T) {
	fileKinds := []FieldType{FieldImage, FieldVideo, FieldAudio, FieldFile}
	for _, ft := range fileKinds {
		if !ft.IsFileKind() {
			t.Errorf("%s should be a file kind", ft)
		}
	}

	dataKinds := []FieldType{FieldString, FieldNumber, FieldBoolean, FieldObject, FieldArray}
	for _, ft := range dataKinds {
		if ft.IsFileKind() {
			t.Errorf("%s should not be a file kind", ft)
		}
	}
}

func TestEndpointEffectiveAuth(t *testing.T) {
	tests := []struct {
		name           string
		override       AuthRequirement
		projectEnabled bool
		want           bool
	}{
		{"inherit uses project true", AuthInherit, true, true},
		{"inherit uses project false", AuthInherit, false, false},
		{"empty string inherits", "", true, true},
		{"required overrides disabled project", AuthRequired, false, true},
		{"notRequired overrides enabled project", AuthNotRequired, true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &Project{Authentication: AuthSettings{Enabled: tt.projectEnabled}}
			e := &Endpoint{RequiresAuth: tt.override}
			if got := e.EffectiveAuth(p); got != tt.want {
				t.Errorf("EffectiveAuth() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAuthSettingsDefaults(t *testing.T) {
	var a AuthSettings
	if a.Header() != "Authorization" {
		t.Errorf("default header = %q", a.Header())
	}
	if a.Prefix() != "Bearer" {
		t.Errorf("default prefix = %q", a.Prefix())
	}

	a = AuthSettings{HeaderName: "X-Api-Key", TokenPrefix: "Token"}
	if a.Header() != "X-Api-Key" || a.Prefix() != "Token" {
		t.Errorf("configured header/prefix not honored: %q %q", a.Header(), a.Prefix())
	}
}

func TestAccountClone(t *testing.T) {
	a := &Account{
		ID:            "acct-1",
		Tier:          TierPro,
		DailyRequests: map[string]int{"1700000000000": 5},
	}

	cp := a.Clone()
	cp.DailyRequests["1700000000000"] = 99

	if a.DailyRequests["1700000000000"] != 5 {
		t.Error("Clone shares the DailyRequests map")
	}
}

func TestProjectValidate(t *testing.T) {
	base := func() *Project {
		return &Project{
			ID:      "p1",
			Name:    "My Proj",
			OwnerID: "acct-1",
			Endpoints: []Endpoint{
				{ID: "ep-post", Path: "/users", Method: "POST"},
				{ID: "ep-get", Path: "/users", Method: "GET", DataSource: "ep-post"},
			},
		}
	}

	t.Run("valid project", func(t *testing.T) {
		if err := base().Validate(); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	})

	t.Run("empty name", func(t *testing.T) {
		p := base()
		p.Name = "  "
		if err := p.Validate(); err == nil {
			t.Fatal("expected error for empty name")
		}
	})

	t.Run("dangling data source", func(t *testing.T) {
		p := base()
		p.Endpoints[1].DataSource = "nope"
		if err := p.Validate(); err == nil {
			t.Fatal("expected error for dangling dataSource")
		}
	})

	t.Run("data source must be POST", func(t *testing.T) {
		p := base()
		p.Endpoints[0].Method = "GET"
		if err := p.Validate(); err == nil {
			t.Fatal("expected error for non-POST dataSource")
		}
	})

	t.Run("aggregator needs fields", func(t *testing.T) {
		p := base()
		p.Endpoints[1].DataSourceMode = ModeAggregator
		p.Endpoints[1].Aggregator = AggAvg
		if err := p.Validate(); err == nil {
			t.Fatal("expected error for aggregator without selected fields")
		}
		p.Endpoints[1].SelectedFields = []string{"age"}
		if err := p.Validate(); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	})

	t.Run("bad method", func(t *testing.T) {
		p := base()
		p.Endpoints[0].Method = "FETCH"
		if err := p.Validate(); err == nil {
			t.Fatal("expected error for invalid method")
		}
	})
}
