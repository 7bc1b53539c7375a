package policy

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wyrexdev/velox/internal/config"
	"github.com/wyrexdev/velox/internal/multipart"
	"github.com/wyrexdev/velox/internal/observability"
)

func pngUpload() multipart.FilePart {
	return multipart.FilePart{
		FieldName:   "avatar",
		Filename:    "photo.PNG",
		ContentType: "image/png",
		Content:     []byte("fake png"),
		Size:        8,
	}
}

func uploadAttrs() Attributes {
	return Attributes{
		Method:     "POST",
		Path:       "/upload",
		RemoteAddr: "10.1.2.3:54321",
	}
}

func TestNewEngine(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		rules   []config.PolicyRule
		wantErr bool
	}{
		{
			name:  "no rules",
			rules: nil,
		},
		{
			name: "valid rules",
			rules: []config.PolicyRule{
				{
					Name:       "allow-images",
					Expression: `file.content_type.startsWith("image/")`,
					Effect:     config.PolicyEffectAllow,
				},
			},
		},
		{
			name: "invalid expression",
			rules: []config.PolicyRule{
				{
					Name:       "broken",
					Expression: "invalid syntax {{{{",
					Effect:     config.PolicyEffectDeny,
				},
			},
			wantErr: true,
		},
		{
			name: "unknown variable",
			rules: []config.PolicyRule{
				{
					Name:       "unknown-var",
					Expression: "subject.id == 1",
					Effect:     config.PolicyEffectDeny,
				},
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			engine, err := NewEngine(tt.rules, WithLogger(observability.NopLogger()))
			if tt.wantErr {
				assert.Error(t, err)
				assert.Nil(t, engine)
			} else {
				assert.NoError(t, err)
				assert.NotNil(t, engine)
			}
		})
	}
}

func TestEngine_Evaluate_Expressions(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		expression  string
		effect      string
		wantAllowed bool
		wantRule    string
	}{
		{
			name:        "deny oversized files",
			expression:  "file.size > 4",
			effect:      config.PolicyEffectDeny,
			wantAllowed: false,
			wantRule:    "rule",
		},
		{
			name:        "size under limit admits by default",
			expression:  "file.size > 1000",
			effect:      config.PolicyEffectDeny,
			wantAllowed: true,
			wantRule:    "",
		},
		{
			name:        "content type prefix",
			expression:  `file.content_type.startsWith("image/")`,
			effect:      config.PolicyEffectAllow,
			wantAllowed: true,
			wantRule:    "rule",
		},
		{
			name:        "file extension helper lower-cases",
			expression:  `file_extension(file.filename) == "png"`,
			effect:      config.PolicyEffectAllow,
			wantAllowed: true,
			wantRule:    "rule",
		},
		{
			name:        "request attributes visible",
			expression:  `request.method == "POST" && request.path == "/upload"`,
			effect:      config.PolicyEffectAllow,
			wantAllowed: true,
			wantRule:    "rule",
		},
		{
			name:        "remote address has no port",
			expression:  `ip_in_range(request.remote_addr, "10.0.0.0/8")`,
			effect:      config.PolicyEffectDeny,
			wantAllowed: false,
			wantRule:    "rule",
		},
		{
			name:        "cidr miss",
			expression:  `ip_in_range(request.remote_addr, "192.168.0.0/16")`,
			effect:      config.PolicyEffectDeny,
			wantAllowed: true,
			wantRule:    "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			engine, err := NewEngine([]config.PolicyRule{
				{Name: "rule", Expression: tt.expression, Effect: tt.effect},
			})
			require.NoError(t, err)

			decision := engine.Evaluate(context.Background(), pngUpload(), uploadAttrs())

			assert.Equal(t, tt.wantAllowed, decision.Allowed)
			assert.Equal(t, tt.wantRule, decision.Rule)
		})
	}
}

func TestEngine_Evaluate_PriorityOrder(t *testing.T) {
	t.Parallel()

	engine, err := NewEngine([]config.PolicyRule{
		{Name: "deny-all", Expression: "true", Effect: config.PolicyEffectDeny, Priority: 10},
		{Name: "allow-images", Expression: `file.content_type.startsWith("image/")`, Effect: config.PolicyEffectAllow, Priority: 1},
	})
	require.NoError(t, err)

	// Lower priority value runs first, so the image allowance wins
	// before the deny-all fallback.
	decision := engine.Evaluate(context.Background(), pngUpload(), uploadAttrs())
	assert.True(t, decision.Allowed)
	assert.Equal(t, "allow-images", decision.Rule)

	text := multipart.FilePart{FieldName: "doc", Filename: "a.txt", ContentType: "text/plain", Size: 3}
	decision = engine.Evaluate(context.Background(), text, uploadAttrs())
	assert.False(t, decision.Allowed)
	assert.Equal(t, "deny-all", decision.Rule)
}

func TestEngine_Evaluate_FirstMatchWins(t *testing.T) {
	t.Parallel()

	engine, err := NewEngine([]config.PolicyRule{
		{Name: "first", Expression: "true", Effect: config.PolicyEffectAllow, Priority: 1},
		{Name: "second", Expression: "true", Effect: config.PolicyEffectDeny, Priority: 2},
	})
	require.NoError(t, err)

	decision := engine.Evaluate(context.Background(), pngUpload(), uploadAttrs())
	assert.True(t, decision.Allowed)
	assert.Equal(t, "first", decision.Rule)
}

func TestEngine_Evaluate_NoRulesAdmits(t *testing.T) {
	t.Parallel()

	engine, err := NewEngine(nil)
	require.NoError(t, err)

	decision := engine.Evaluate(context.Background(), pngUpload(), uploadAttrs())
	assert.True(t, decision.Allowed)
	assert.Empty(t, decision.Rule)
	assert.Equal(t, "no matching rule", decision.Reason)
}

func TestEngine_Evaluate_ErrorSkipsRule(t *testing.T) {
	t.Parallel()

	// Indexing a missing key is a runtime error; the rule is skipped
	// and the next one decides.
	engine, err := NewEngine([]config.PolicyRule{
		{Name: "errors", Expression: `file["missing"] == "x"`, Effect: config.PolicyEffectDeny, Priority: 1},
		{Name: "deny-all", Expression: "true", Effect: config.PolicyEffectDeny, Priority: 2},
	}, WithLogger(observability.NopLogger()))
	require.NoError(t, err)

	decision := engine.Evaluate(context.Background(), pngUpload(), uploadAttrs())
	assert.False(t, decision.Allowed)
	assert.Equal(t, "deny-all", decision.Rule)
}

func TestEngine_Replace(t *testing.T) {
	t.Parallel()

	engine, err := NewEngine([]config.PolicyRule{
		{Name: "deny-all", Expression: "true", Effect: config.PolicyEffectDeny},
	})
	require.NoError(t, err)

	decision := engine.Evaluate(context.Background(), pngUpload(), uploadAttrs())
	require.False(t, decision.Allowed)

	require.NoError(t, engine.Replace([]config.PolicyRule{
		{Name: "allow-all", Expression: "true", Effect: config.PolicyEffectAllow},
	}))

	decision = engine.Evaluate(context.Background(), pngUpload(), uploadAttrs())
	assert.True(t, decision.Allowed)
	assert.Equal(t, "allow-all", decision.Rule)
}

func TestEngine_Replace_KeepsOldRulesOnError(t *testing.T) {
	t.Parallel()

	engine, err := NewEngine([]config.PolicyRule{
		{Name: "deny-all", Expression: "true", Effect: config.PolicyEffectDeny},
	})
	require.NoError(t, err)

	err = engine.Replace([]config.PolicyRule{
		{Name: "broken", Expression: "{{{{", Effect: config.PolicyEffectAllow},
	})
	require.Error(t, err)

	decision := engine.Evaluate(context.Background(), pngUpload(), uploadAttrs())
	assert.False(t, decision.Allowed, "old rule set stays active")
}

func TestEngine_Rules(t *testing.T) {
	t.Parallel()

	engine, err := NewEngine([]config.PolicyRule{
		{Name: "b", Expression: "true", Effect: config.PolicyEffectAllow, Priority: 2},
		{Name: "a", Expression: "true", Effect: config.PolicyEffectAllow, Priority: 1},
	})
	require.NoError(t, err)

	rules := engine.Rules()
	require.Len(t, rules, 2)
	assert.Equal(t, "a", rules[0].Name)
	assert.Equal(t, "b", rules[1].Name)
}

func TestFileExtensionBinding(t *testing.T) {
	t.Parallel()

	tests := []struct {
		filename string
		want     string
	}{
		{"photo.PNG", "png"},
		{"archive.tar.gz", "gz"},
		{"noext", ""},
		{"trailing.", ""},
		{"", ""},
	}

	for _, tt := range tests {
		engine, err := NewEngine([]config.PolicyRule{
			{Name: "ext", Expression: `file_extension(file.filename) == "` + tt.want + `"`, Effect: config.PolicyEffectAllow},
		})
		require.NoError(t, err)

		file := multipart.FilePart{FieldName: "f", Filename: tt.filename, Size: 1}
		decision := engine.Evaluate(context.Background(), file, uploadAttrs())
		assert.Equal(t, "ext", decision.Rule, "filename %q should yield extension %q", tt.filename, tt.want)
	}
}
