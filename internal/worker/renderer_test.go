package worker

import "testing"

func TestRenderer_MergeTags(t *testing.T) {
	r := NewRenderer()
	fields := map[string]interface{}{
		"first_name":   "Ada",
		"company_name": "Initech",
	}

	tests := []struct {
		name     string
		template string
		want     string
	}{
		{"single brace tags", "Hi {first_name} at {company_name}", "Hi Ada at Initech"},
		{"liquid tags pass through", "Hi {{ first_name }}", "Hi Ada"},
		{"unknown tag renders empty", "Hi {nickname}!", "Hi !"},
		{"no tags", "Plain text", "Plain text"},
		{"empty template", "", ""},
		{"default filter", "Hi {{ nickname | default: \"there\" }}", "Hi there"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := r.Render(tt.template, fields)
			if err != nil {
				t.Fatalf("Render() error: %v", err)
			}
			if got != tt.want {
				t.Errorf("Render(%q) = %q, want %q", tt.template, got, tt.want)
			}
		})
	}
}

func TestRenderer_CacheReturnsSameResult(t *testing.T) {
	r := NewRenderer()
	fields := map[string]interface{}{"first_name": "Ada"}

	first, err := r.Render("Hi {first_name}", fields)
	if err != nil {
		t.Fatalf("Render() error: %v", err)
	}
	second, err := r.Render("Hi {first_name}", fields)
	if err != nil {
		t.Fatalf("Render() cached error: %v", err)
	}
	if first != second {
		t.Errorf("cached render differs: %q vs %q", first, second)
	}
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"{first_name}", "{{ first_name }}"},
		{"{{ first_name }}", "{{ first_name }}"},
		{"{First_Name}", "{First_Name}"}, // tags are lowercase by convention
		{"a {x} b {y}", "a {{ x }} b {{ y }}"},
	}
	for _, tt := range tests {
		if got := normalize(tt.in); got != tt.want {
			t.Errorf("normalize(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
