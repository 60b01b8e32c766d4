package fit

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/s33g/promptfit/internal/layout"
	"github.com/s33g/promptfit/internal/prompt"
	"github.com/s33g/promptfit/internal/tokens"
)

type fakeProvider struct {
	prompts []string
	text    string
	err     error
}

func (p *fakeProvider) Complete(_ context.Context, conversation string) (prompt.Completion, error) {
	p.prompts = append(p.prompts, conversation)
	if p.err != nil {
		return prompt.Completion{}, p.err
	}
	return prompt.Completion{Text: p.text}, nil
}

type failingStore struct{ err error }

func (s failingStore) Get(context.Context, string) (*prompt.Summary, error) { return nil, s.err }
func (s failingStore) Set(context.Context, string, prompt.Summary) error    { return s.err }

func TestFit_SummarizesLongConversation(t *testing.T) {
	calls := 0
	summarizer := func(_ context.Context, req SummaryRequest) (string, error) {
		calls++
		return "S", nil
	}
	store := NewMemoryStore()
	root := prompt.Region(
		prompt.Region(prompt.Text(strings.Repeat("A", 200))).With(
			prompt.WithID("conversation"),
			prompt.WithPriority(1),
			prompt.WithStrategy(Summarize(store, summarizer)),
		),
		prompt.Region(prompt.Text("hello")),
	)

	got, err := newTestEngine().Fit(context.Background(), root, 30)
	if err != nil {
		t.Fatalf("Fit() error = %v", err)
	}
	if calls != 1 {
		t.Errorf("summarizer called %d times, want 1", calls)
	}

	rendered := layout.Render(layout.Flatten(got))
	if !strings.Contains(rendered, "S") {
		t.Errorf("rendered %q does not contain the summary", rendered)
	}
	if len(rendered) >= 200 {
		t.Errorf("rendered length %d, want < 200", len(rendered))
	}
	if !strings.Contains(tokens.Project(got), SummaryHeader+"S") {
		t.Errorf("projection %q missing summary header", tokens.Project(got))
	}

	saved, _ := store.Get(context.Background(), "conversation")
	if saved == nil || saved.Content != "S" {
		t.Errorf("stored summary = %+v, want S", saved)
	}
}

func TestSummarize_StatefulAcrossRuns(t *testing.T) {
	store := NewMemoryStore()
	var previous []string
	run := 0
	summarizer := func(_ context.Context, req SummaryRequest) (string, error) {
		run++
		previous = append(previous, req.PreviousSummary)
		return "summary " + string(rune('0'+run)), nil
	}
	build := func() *prompt.Node {
		return prompt.Region(
			prompt.Region(prompt.Text(strings.Repeat("h", 200))).With(
				prompt.WithID("thread-1"),
				prompt.WithPriority(1),
				prompt.WithStrategy(Summarize(store, summarizer)),
			),
		)
	}

	for i := 0; i < 2; i++ {
		if _, err := newTestEngine().Fit(context.Background(), build(), 20); err != nil {
			t.Fatalf("run %d: Fit() error = %v", i, err)
		}
	}

	if len(previous) != 2 || previous[0] != "" || previous[1] != "summary 1" {
		t.Errorf("previous summaries = %q, want [\"\" \"summary 1\"]", previous)
	}
}

func TestSummarize_DefaultUsesAmbientProvider(t *testing.T) {
	provider := &fakeProvider{text: "  the user greeted  "}
	n := prompt.NewMessage(prompt.RoleUser, prompt.Text("hello there")).With(prompt.WithID("m1"))
	fc := fitContext(n, 100, 10)
	fc.Ambient = prompt.Ambient{Provider: provider}

	got, err := Summarize(nil, nil)(context.Background(), n, fc)
	if err != nil {
		t.Fatalf("Summarize() error = %v", err)
	}
	if len(provider.prompts) != 1 || !strings.Contains(provider.prompts[0], "user: hello there") {
		t.Errorf("provider prompts = %q", provider.prompts)
	}
	want := prompt.NewMessage(prompt.RoleUser, prompt.Text(SummaryHeader+"the user greeted")).With(prompt.WithID("m1"))
	if !prompt.Equal(got, want) {
		t.Errorf("Summarize() = %q, want %q", tokens.Project(got), tokens.Project(want))
	}
}

func TestSummarize_PreviousSummaryInPrompt(t *testing.T) {
	provider := &fakeProvider{text: "new"}
	store := NewMemoryStore()
	store.Set(context.Background(), "c", prompt.Summary{Content: "old facts"})

	n := prompt.Region(prompt.Text("more talk")).With(prompt.WithID("c"))
	fc := fitContext(n, 100, 10)
	fc.Ambient.Provider = provider

	if _, err := Summarize(store, nil)(context.Background(), n, fc); err != nil {
		t.Fatalf("Summarize() error = %v", err)
	}
	if !strings.Contains(provider.prompts[0], "old facts") {
		t.Errorf("prompt %q does not include the previous summary", provider.prompts[0])
	}
}

func TestSummarize_MissingProvider(t *testing.T) {
	root := prompt.Region(
		prompt.Region(prompt.Text(strings.Repeat("p", 200))).With(prompt.WithPriority(1), prompt.WithStrategy(Summarize(nil, nil))),
	)
	_, err := newTestEngine().Fit(context.Background(), root, 10)
	if !errors.Is(err, ErrNoProvider) {
		t.Errorf("err = %v, want ErrNoProvider", err)
	}
}

func TestSummarize_CollaboratorErrors(t *testing.T) {
	modelErr := errors.New("model overloaded")
	storeErr := errors.New("store down")

	tests := []struct {
		name     string
		store    prompt.SummaryStore
		provider *fakeProvider
		want     error
	}{
		{name: "provider failure", store: NewMemoryStore(), provider: &fakeProvider{err: modelErr}, want: modelErr},
		{name: "store failure", store: failingStore{err: storeErr}, provider: &fakeProvider{text: "ok"}, want: storeErr},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := prompt.Region(
				prompt.Region(prompt.Text(strings.Repeat("q", 200))).With(
					prompt.WithID("x"),
					prompt.WithPriority(1),
					prompt.WithStrategy(Summarize(tt.store, nil)),
				),
			)
			eng := New(Options{Ambient: prompt.Ambient{Provider: tt.provider}})
			got, err := eng.Fit(context.Background(), root, 10)
			if err != tt.want {
				t.Errorf("err = %v, want %v unchanged", err, tt.want)
			}
			if got != nil {
				t.Error("a failed summarization must abort the fit")
			}
		})
	}
}

func TestSummarize_RepeatedIdenticalSummaryStops(t *testing.T) {
	summarizer := func(context.Context, SummaryRequest) (string, error) {
		return strings.Repeat("still long ", 20), nil
	}
	root := prompt.Region(
		prompt.Region(prompt.Text(strings.Repeat("w", 400))).With(prompt.WithPriority(1), prompt.WithStrategy(Summarize(nil, summarizer))),
	)

	_, err := newTestEngine().Fit(context.Background(), root, 10)

	var ferr *FitError
	if !errors.As(err, &ferr) || ferr.Reason != ReasonNoProgress || ferr.Iteration != 1 {
		t.Errorf("err = %v, want no-progress at iteration 1", err)
	}
}

func TestSummarize_Leaf(t *testing.T) {
	strategy := Summarize(nil, func(context.Context, SummaryRequest) (string, error) { return "short", nil })
	leaf := prompt.MustToolResult("c1", "search", prompt.ToolOutput{Value: strings.Repeat("r", 100)}).
		With(prompt.WithPriority(2), prompt.WithStrategy(strategy))

	got, err := strategy(context.Background(), leaf, fitContext(leaf, 100, 10))
	if err != nil {
		t.Fatalf("Summarize() error = %v", err)
	}
	if err := prompt.Validate(got); err != nil {
		t.Errorf("summarized leaf is invalid: %v", err)
	}
	if got.Priority() != 2 || tokens.Project(got) != SummaryHeader+"short" {
		t.Errorf("got %v with projection %q", got, tokens.Project(got))
	}
}
