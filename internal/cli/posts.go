package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/eringen/mdblog/content"
	"github.com/eringen/mdblog/markdown"
)

func init() {
	list := &cobra.Command{
		Use:   "list",
		Short: "List posts newest first",
		Run:   runList,
	}
	list.Flags().IntP("limit", "l", 0, "Max results (0 = all)")
	list.Flags().StringP("tag", "t", "", "Only posts with this tag")

	show := &cobra.Command{
		Use:   "show <slug>",
		Short: "Show a post",
		Args:  cobra.ExactArgs(1),
		Run:   runShow,
	}
	show.Flags().Bool("html", false, "Print the rendered HTML body")

	create := &cobra.Command{
		Use:   "new <title>",
		Short: "Create a post",
		Long:  "Create a post. The body is read from --file, or from stdin when piped. HTML bodies are converted to markdown.",
		Args:  cobra.MinimumNArgs(1),
		Run:   runNew,
	}
	create.Flags().String("file", "", "Read the body from this file")
	create.Flags().StringP("tags", "t", "", "Comma-separated tags")
	create.Flags().String("excerpt", "", "Excerpt (default: derived from the body)")
	create.Flags().String("cover", "", "Cover image URL")
	create.Flags().String("slug", "", "Slug (default: derived from the title)")
	create.Flags().String("date", "", "Date YYYY-MM-DD (default: today)")
	create.Flags().Bool("dry-run", false, "Print the document instead of writing it")

	RootCmd.AddCommand(list, show, create)
}

func runList(cmd *cobra.Command, args []string) {
	limit, _ := cmd.Flags().GetInt("limit")
	tag, _ := cmd.Flags().GetString("tag")

	repo, _, err := openRepo(cmd.Context())
	if err != nil {
		exitErr("open content", err)
	}
	posts, err := repo.Posts(cmd.Context())
	if err != nil {
		exitErr("list", err)
	}
	if tag != "" {
		key := content.TagKey(tag)
		var filtered []content.Post
		for _, p := range posts {
			for _, t := range p.Tags {
				if content.TagKey(t) == key {
					filtered = append(filtered, p)
					break
				}
			}
		}
		posts = filtered
	}
	if limit > 0 && len(posts) > limit {
		posts = posts[:limit]
	}

	if formatFlag == "json" {
		for i := range posts {
			posts[i].Content = ""
		}
		b, _ := json.MarshalIndent(posts, "", "  ")
		fmt.Println(string(b))
		return
	}
	for _, p := range posts {
		fmt.Printf("%s  %-40s  %s\n", p.Date, p.Slug, p.Title)
	}
}

func runShow(cmd *cobra.Command, args []string) {
	asHTML, _ := cmd.Flags().GetBool("html")

	repo, _, err := openRepo(cmd.Context())
	if err != nil {
		exitErr("open content", err)
	}
	post, err := repo.GetBySlug(cmd.Context(), args[0])
	if errors.Is(err, content.ErrNotFound) {
		fmt.Fprintf(os.Stderr, "no post %q\n", args[0])
		os.Exit(1)
	}
	if err != nil {
		exitErr("show", err)
	}
	if !asHTML {
		post.Content = markdown.StripHTML(post.Content)
	}

	if formatFlag == "json" {
		b, _ := json.MarshalIndent(post, "", "  ")
		fmt.Println(string(b))
		return
	}
	fmt.Printf("%s\n%s · %s · %d min read\n", post.Title, post.Date, post.Author, post.ReadingTime)
	if len(post.Tags) > 0 {
		fmt.Printf("tags: %s\n", strings.Join(post.Tags, ", "))
	}
	fmt.Printf("file: %s\n\n%s\n", post.Filename, post.Content)
}

func runNew(cmd *cobra.Command, args []string) {
	file, _ := cmd.Flags().GetString("file")
	tagsStr, _ := cmd.Flags().GetString("tags")
	excerpt, _ := cmd.Flags().GetString("excerpt")
	cover, _ := cmd.Flags().GetString("cover")
	slug, _ := cmd.Flags().GetString("slug")
	date, _ := cmd.Flags().GetString("date")
	dryRun, _ := cmd.Flags().GetBool("dry-run")

	body, err := readBody(file)
	if err != nil {
		exitErr("read body", err)
	}
	if markdown.LooksLikeHTML(body) {
		if body, err = markdown.FromHTML(body); err != nil {
			exitErr("convert html", err)
		}
	}
	if strings.TrimSpace(body) == "" {
		exitErr("new", errors.New("post body is empty"))
	}

	var tags []string
	for _, t := range strings.Split(tagsStr, ",") {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}

	repo, _, err := openRepo(cmd.Context())
	if err != nil {
		exitErr("open content", err)
	}
	in := content.NewPost{
		Title:      strings.Join(args, " "),
		Content:    body,
		Excerpt:    excerpt,
		CoverImage: cover,
		Tags:       tags,
		Slug:       slug,
		Date:       date,
	}
	if dryRun {
		d, err := repo.Prepare(in)
		if err != nil {
			exitErr("prepare", err)
		}
		fmt.Fprintf(os.Stderr, "would write %s\n", d.Filename)
		os.Stdout.Write(d.Document)
		return
	}
	d, err := repo.CreatePost(cmd.Context(), in)
	if err != nil {
		exitErr("create", err)
	}
	fmt.Println(d.Filename)
}

func readBody(file string) (string, error) {
	if file != "" {
		b, err := os.ReadFile(file)
		return string(b), err
	}
	stat, err := os.Stdin.Stat()
	if err != nil || stat.Mode()&os.ModeCharDevice != 0 {
		return "", errors.New("no body: use --file or pipe content on stdin")
	}
	b, err := io.ReadAll(os.Stdin)
	return string(b), err
}
