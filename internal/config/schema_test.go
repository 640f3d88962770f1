package config

import (
	"os"
	"strings"
	"testing"
)

func TestSchemaRegisterAndLookup(t *testing.T) {
	t.Parallel()
	s := NewSchema()
	s.RegisterAll([]ConfigOption{
		{Key: "log.level", Type: TypeString, Default: "info"},
		{Key: "round", Section: TimersSection, Type: TypeInt},
	})

	if opt := s.Lookup("", "log.level"); opt == nil || opt.Default != "info" {
		t.Fatalf("expected global log.level, got %+v", opt)
	}
	if opt := s.Lookup(TimersSection, "round"); opt == nil || opt.Type != TypeInt {
		t.Fatalf("expected timers round, got %+v", opt)
	}
	if s.Lookup("", "round") != nil {
		t.Fatal("section option must not be visible globally")
	}
	if s.Lookup("nosuch", "round") != nil {
		t.Fatal("unknown section must return nil")
	}
}

func TestSchemaDuplicateOverwrites(t *testing.T) {
	t.Parallel()
	s := NewSchema()
	s.Register(ConfigOption{Key: "k", Default: "first"})
	s.Register(ConfigOption{Key: "k", Default: "second"})
	if got := s.Lookup("", "k").Default; got != "second" {
		t.Fatalf("expected last registration to win, got %q", got)
	}
}

func TestSchemaIsKnown_GlobalFallbackInSection(t *testing.T) {
	t.Parallel()
	s := NewSchema()
	s.Register(ConfigOption{Key: "log.level"})
	s.Register(ConfigOption{Key: "format", Section: "transcripts"})

	for _, tc := range []struct {
		section, key string
		want         bool
	}{
		{"", "log.level", true},
		{"", "format", false},
		{"transcripts", "format", true},
		{"transcripts", "log.level", true},
		{"play", "log.level", true},
		{"play", "format", false},
	} {
		if got := s.IsKnown(tc.section, tc.key); got != tc.want {
			t.Errorf("IsKnown(%q, %q) = %v, want %v", tc.section, tc.key, got, tc.want)
		}
	}
}

func TestSchemaSections(t *testing.T) {
	t.Parallel()
	secs := DefaultSchema().Sections()
	want := []string{"play", "timers", "transcripts"}
	if strings.Join(secs, ",") != strings.Join(want, ",") {
		t.Fatalf("expected sections %v, got %v", want, secs)
	}
	if n := len(DefaultSchema().SectionOptions(TimersSection)); n != 2 {
		t.Fatalf("expected 2 timer options, got %d", n)
	}
}

func TestValidateConfig(t *testing.T) {
	t.Parallel()
	for _, tc := range []struct {
		name   string
		global map[string]string
		cmds   map[string]map[string]string
		want   []string
	}{
		{
			name:   "all valid",
			global: map[string]string{"log.level": "debug", "backend.offline": "yes", "backend.close-timeout": "2s", "log.max-files": "3"},
			cmds:   map[string]map[string]string{"transcripts": {"format": "text", "log.level": "warn"}},
		},
		{
			name:   "unknown global",
			global: map[string]string{"colour": "always"},
			want:   []string{`unknown global option: "colour" (value: "always")`},
		},
		{
			name: "unknown command option",
			cmds: map[string]map[string]string{"play": {"fullscreen": "true"}},
			want: []string{`unknown option for command "play": "fullscreen" (value: "true")`},
		},
		{
			name:   "type mismatches",
			global: map[string]string{"log.max-files": "many", "backend.close-timeout": "later", "storage.backend": "s3"},
			want: []string{
				`global option "backend.close-timeout": expected duration, got "later"`,
				`global option "log.max-files": expected int, got "many"`,
				`global option "storage.backend": expected one of fs|memory, got "s3"`,
			},
		},
		{
			name: "global option in section is type checked",
			cmds: map[string]map[string]string{"play": {"backend.offline": "perhaps"}},
			want: []string{`option "backend.offline" in [play]: expected bool, got "perhaps"`},
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			c := NewConfig()
			for k, v := range tc.global {
				c.SetGlobalOption(k, v)
			}
			for sec, opts := range tc.cmds {
				for k, v := range opts {
					c.SetCommandOption(sec, k, v)
				}
			}
			issues := ValidateConfig(c, DefaultSchema())
			if strings.Join(issues, "\n") != strings.Join(tc.want, "\n") {
				t.Fatalf("unexpected issues:\n got: %q\nwant: %q", issues, tc.want)
			}
		})
	}
}

func TestValidateType(t *testing.T) {
	t.Parallel()
	for _, tc := range []struct {
		typ   OptionType
		value string
		ok    bool
	}{
		{TypeString, "anything at all", true},
		{"", "", true},
		{TypeBool, "on", true},
		{TypeBool, "No", true},
		{TypeBool, "2", false},
		{TypeInt, "-4", true},
		{TypeInt, "4.5", false},
		{TypeDuration, "1m30s", true},
		{TypeDuration, "90", false},
		{OptionType("colour"), "x", false},
	} {
		err := validateType(tc.typ, tc.value)
		if (err == nil) != tc.ok {
			t.Errorf("validateType(%q, %q) = %v, want ok=%v", tc.typ, tc.value, err, tc.ok)
		}
	}
}

func TestSchemaSplitKey(t *testing.T) {
	t.Parallel()
	s := DefaultSchema()
	for _, tc := range []struct {
		key, section, name string
		ok                 bool
	}{
		{"log.level", "", "log.level", true},
		{"timers.round", TimersSection, "round", true},
		{"transcripts.format", "transcripts", "format", true},
		{"play.show-log", "play", "show-log", true},
		{"timers.colour", "", "", false},
		{"round", "", "", false},
		{"nosuch.key", "", "", false},
	} {
		section, name, ok := s.SplitKey(tc.key)
		if section != tc.section || name != tc.name || ok != tc.ok {
			t.Errorf("SplitKey(%q) = %q, %q, %v", tc.key, section, name, ok)
		}
	}
}

func TestSchemaSectionValue(t *testing.T) {
	t.Parallel()
	s := DefaultSchema()
	c := NewConfig()
	c.Timers.VerdictSeconds = 15
	c.SetGlobalOption("scenario.file", "case.yaml")
	c.SetCommandOption("play", "show-log", "yes")

	for _, tc := range []struct{ section, key, want string }{
		{TimersSection, "round", "300"},
		{TimersSection, "verdict", "15"},
		{"play", "show-log", "yes"},
		{"transcripts", "format", "text"},
		{"play", "log.level", "info"},
		{"play", "nosuch", ""},
	} {
		if got := s.SectionValue(c, tc.section, tc.key); got != tc.want {
			t.Errorf("SectionValue(%q, %q) = %q, want %q", tc.section, tc.key, got, tc.want)
		}
	}
	if got := c.GetString("scenario.file"); got != "case.yaml" {
		t.Errorf("GetString = %q", got)
	}
	if got := c.GetString("session.id"); got != "" {
		t.Errorf("GetString on unset key = %q", got)
	}
}

func TestSchemaResolve(t *testing.T) {
	s := NewSchema()
	s.Register(ConfigOption{Key: "log.level", Default: "info", EnvVar: "COURTROOM_TEST_RESOLVE_LEVEL"})
	s.Register(ConfigOption{Key: "log.max-files", Type: TypeInt, Default: "5"})
	s.Register(ConfigOption{Key: "backend.offline", Type: TypeBool, Default: "false", EnvVar: "COURTROOM_TEST_RESOLVE_OFFLINE"})

	c := NewConfig()
	c.SetGlobalOption("log.level", "warn")

	if v := s.Resolve(c, "log.level"); v != "warn" {
		t.Fatalf("expected warn from config, got %q", v)
	}

	t.Setenv("COURTROOM_TEST_RESOLVE_LEVEL", "debug")
	if v := s.Resolve(c, "log.level"); v != "debug" {
		t.Fatalf("expected debug from env, got %q", v)
	}

	// an empty env var still overrides
	t.Setenv("COURTROOM_TEST_RESOLVE_LEVEL", "")
	if v := s.Resolve(c, "log.level"); v != "" {
		t.Fatalf("expected empty from env, got %q", v)
	}

	os.Unsetenv("COURTROOM_TEST_RESOLVE_LEVEL")
	if v := s.Resolve(NewConfig(), "log.level"); v != "info" {
		t.Fatalf("expected info default, got %q", v)
	}
	if v := s.Resolve(NewConfig(), "nonexistent"); v != "" {
		t.Fatalf("expected empty for unknown key, got %q", v)
	}

	c.SetGlobalOption("log.max-files", "nine")
	if v := s.ResolveInt(c, "log.max-files"); v != 5 {
		t.Fatalf("expected default for unparseable int, got %d", v)
	}
	c.SetGlobalOption("log.max-files", "9")
	if v := s.ResolveInt(c, "log.max-files"); v != 9 {
		t.Fatalf("expected 9, got %d", v)
	}

	if s.ResolveBool(c, "backend.offline") {
		t.Fatal("expected offline false by default")
	}
	t.Setenv("COURTROOM_TEST_RESOLVE_OFFLINE", "1")
	if !s.ResolveBool(c, "backend.offline") {
		t.Fatal("expected offline true from env")
	}
}

func TestFormatHelp(t *testing.T) {
	t.Parallel()
	help := DefaultSchema().FormatHelp()
	for _, want := range []string{
		"Global Options:\n",
		"storage.backend",
		"values: fs|memory, default: fs, env: COURTROOM_STORAGE",
		"\n[timers] Options:\n",
		"type: int, default: 300",
	} {
		if !strings.Contains(help, want) {
			t.Errorf("expected %q in help:\n%s", want, help)
		}
	}
	if strings.Index(help, "Global Options:") > strings.Index(help, "[play] Options:") {
		t.Error("global options must come first")
	}
}

func TestFormatHelp_Empty(t *testing.T) {
	t.Parallel()
	if got := NewSchema().FormatHelp(); got != "" {
		t.Fatalf("expected empty help, got %q", got)
	}
}

func TestDefaultSchemaHasNoUnknownTypes(t *testing.T) {
	t.Parallel()
	s := DefaultSchema()
	all := s.GlobalOptions()
	for _, sec := range s.Sections() {
		all = append(all, s.SectionOptions(sec)...)
	}
	for _, o := range all {
		if o.Type == TypeEnum {
			if len(o.Values) == 0 {
				t.Errorf("enum option %q has no values", o.Key)
			}
		} else if o.Default != "" {
			if err := validateType(o.Type, o.Default); err != nil {
				t.Errorf("option %q default %q: %v", o.Key, o.Default, err)
			}
		}
	}
}
