package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/rcliao/agent-context/internal/budget"
	"github.com/rcliao/agent-context/internal/chunker"
	"github.com/rcliao/agent-context/internal/model"
)

func init() {
	cmd := &cobra.Command{
		Use:   "admit <conversation> [content]",
		Short: "Offer items to a conversation's context",
		Long: "Offer new items to a conversation and print what fits the token budget.\n" +
			"Content can be a positional arg, piped via stdin, or a JSON array of items via --file.",
		Args: cobra.MinimumNArgs(1),
		Run:  runAdmit,
	}

	cmd.Flags().StringP("kind", "k", "user", "Kind: system, user, agent_reply, tool_result, memory, collaboration")
	cmd.Flags().Float64P("importance", "i", model.DefaultImportance, "Importance in [0,1]")
	cmd.Flags().StringArrayP("meta", "m", nil, "Metadata key=value (repeatable)")
	cmd.Flags().String("file", "", `JSON array of {"kind","content","importance","metadata","ttl"} ("-" for stdin)`)
	cmd.Flags().Duration("ttl", 0, "Drop the item from context after this long (e.g. 30m)")
	cmd.Flags().Int("max-tokens", 0, "Override the configured token budget")
	cmd.Flags().Bool("split", false, "Split items larger than the budget into admissible parts")

	RootCmd.AddCommand(cmd)
}

type itemInput struct {
	Kind       string            `json:"kind"`
	Content    string            `json:"content"`
	Importance *float64          `json:"importance,omitempty"`
	Metadata   map[string]string `json:"metadata,omitempty"`
	TTL        string            `json:"ttl,omitempty"`
}

// itemView is a context item without its embedding.
type itemView struct {
	ID           string            `json:"id"`
	Kind         model.Kind        `json:"kind"`
	Tokens       int               `json:"tokens"`
	Importance   float64           `json:"importance"`
	CreatedAt    time.Time         `json:"created_at"`
	HasEmbedding bool              `json:"has_embedding"`
	ExpiresAt    time.Time         `json:"expires_at,omitzero"`
	Content      string            `json:"content"`
	Metadata     map[string]string `json:"metadata,omitempty"`
}

func viewItems(items []model.ContextItem) []itemView {
	views := make([]itemView, len(items))
	for i, it := range items {
		views[i] = itemView{
			ID:           it.ID,
			Kind:         it.Kind,
			Tokens:       it.TokenCount,
			Importance:   it.Importance,
			CreatedAt:    it.CreatedAt,
			HasEmbedding: it.HasEmbedding(),
			ExpiresAt:    it.ExpiresAt,
			Content:      it.Content,
			Metadata:     it.Metadata,
		}
	}
	return views
}

type admitOutput struct {
	Conversation string                       `json:"conversation"`
	MaxTokens    int                          `json:"max_tokens"`
	TotalTokens  int                          `json:"total_tokens"`
	Offered      []string                     `json:"offered"`
	Items        []itemView                   `json:"items"`
	Dropped      map[string]budget.DropReason `json:"dropped"`
}

func runAdmit(cmd *cobra.Command, args []string) {
	convID := args[0]
	kindStr, _ := cmd.Flags().GetString("kind")
	importance, _ := cmd.Flags().GetFloat64("importance")
	metaPairs, _ := cmd.Flags().GetStringArray("meta")
	file, _ := cmd.Flags().GetString("file")
	maxTokens, _ := cmd.Flags().GetInt("max-tokens")
	split, _ := cmd.Flags().GetBool("split")
	ttl, _ := cmd.Flags().GetDuration("ttl")

	var inputs []itemInput
	if file != "" {
		inputs = readItemFile(file)
	} else {
		content := readContent(args[1:])
		if content == "" {
			exitErr("admit", fmt.Errorf("content is required (positional arg, stdin or --file)"))
		}
		inputs = []itemInput{{Kind: kindStr, Content: content, Importance: &importance, Metadata: parseMeta(metaPairs)}}
		if ttl > 0 {
			inputs[0].TTL = ttl.String()
		}
	}

	bc := budgetConfig(maxTokens)
	engine, enc, err := newEngine()
	if err != nil {
		exitErr("tokenizer", err)
	}
	embedder := newEmbedder()
	ctx := cmd.Context()

	var offered []model.ContextItem
	for _, in := range inputs {
		kind, err := model.ParseKind(in.Kind)
		if err != nil {
			exitErr("admit", err)
		}
		imp := model.DefaultImportance
		if in.Importance != nil {
			imp = *in.Importance
		}
		var expires time.Time
		if in.TTL != "" {
			d, err := time.ParseDuration(in.TTL)
			if err != nil || d <= 0 {
				exitErr("admit", fmt.Errorf("invalid ttl %q", in.TTL))
			}
			expires = time.Now().Add(d)
		}

		pieces := []string{in.Content}
		parent := ""
		if split && enc.CountTokens(in.Content) > bc.MaxTokens {
			chunks := chunker.Split(in.Content, bc.MaxTokens, enc)
			pieces = pieces[:0]
			for _, c := range chunks {
				pieces = append(pieces, c.Text)
			}
			parent = model.NewID()
		}

		for i, text := range pieces {
			opts := []budget.ItemOption{budget.WithImportance(imp)}
			if !expires.IsZero() {
				opts = append(opts, budget.WithExpiry(expires))
			}
			for k, v := range in.Metadata {
				opts = append(opts, budget.WithMetadata(k, v))
			}
			if parent != "" {
				opts = append(opts,
					budget.WithMetadata("parent", parent),
					budget.WithMetadata("part", fmt.Sprintf("%d/%d", i+1, len(pieces))))
			}
			if embedder != nil {
				vec, err := embedder.Embed(ctx, text)
				if err != nil {
					exitErr("embed", err)
				}
				opts = append(opts, budget.WithEmbedding(vec))
			}
			item, err := engine.NewItem(kind, text, opts...)
			if err != nil {
				exitErr("admit", err)
			}
			offered = append(offered, item)
		}
	}

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	conv, err := loadConversation(ctx, s, engine, convID)
	if err != nil {
		exitErr("load conversation", err)
	}
	res, err := conv.Admit(offered, bc)
	if err != nil {
		exitErr("admit", err)
	}
	if err := saveConversation(ctx, s, conv); err != nil {
		exitErr("save conversation", err)
	}

	out := admitOutput{
		Conversation: convID,
		MaxTokens:    bc.MaxTokens,
		TotalTokens:  res.TotalTokens,
		Items:        viewItems(res.Items),
		Dropped:      res.DroppedIDs,
	}
	for _, it := range offered {
		out.Offered = append(out.Offered, it.ID)
	}

	if textOutput() {
		fmt.Printf("%s: %d/%d tokens, %d items\n", convID, res.TotalTokens, bc.MaxTokens, len(res.Items))
		printItemLines(res.Items)
		for _, id := range res.Dropped() {
			fmt.Printf("dropped %s (%s)\n", id, res.DroppedIDs[id])
		}
		return
	}
	printJSON(out)
}

func readItemFile(path string) []itemInput {
	var r io.Reader = os.Stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			exitErr("open items", err)
		}
		defer f.Close()
		r = f
	}
	var inputs []itemInput
	if err := json.NewDecoder(r).Decode(&inputs); err != nil {
		exitErr("parse items", err)
	}
	if len(inputs) == 0 {
		exitErr("admit", fmt.Errorf("no items in %s", path))
	}
	return inputs
}

func printItemLines(items []model.ContextItem) {
	for _, it := range items {
		fmt.Printf("  %-13s %5d  %s  %s\n", it.Kind, it.TokenCount, it.ID, preview(it.Content, 60))
	}
}

func preview(s string, n int) string {
	r := []rune(s)
	for i, c := range r {
		if c == '\n' {
			r[i] = ' '
		}
	}
	if len(r) <= n {
		return string(r)
	}
	return string(r[:n-3]) + "..."
}
