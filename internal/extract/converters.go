package extract

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"regexp"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/JohannesKaufmann/html-to-markdown/plugin"
	"golang.org/x/net/html"
)

// PlainText reads text and markdown files as they are.
type PlainText struct{}

func (PlainText) Convert(_ context.Context, sourcePath string) (string, error) {
	b, err := os.ReadFile(sourcePath)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// PDF shells out to poppler's pdftotext with layout preserved.
type PDF struct {
	bin string
}

func NewPDF(bin string) *PDF {
	if bin == "" {
		bin = "pdftotext"
	}
	return &PDF{bin: bin}
}

func (p *PDF) Convert(ctx context.Context, sourcePath string) (string, error) {
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, p.bin, "-layout", "-enc", "UTF-8", sourcePath, "-")
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("%s: %w: %s", p.bin, err, strings.TrimSpace(stderr.String()))
	}
	return stdout.String(), nil
}

var excessiveLinesRe = regexp.MustCompile(`\n{4,}`)

// HTML keeps the main content area of a page and converts it to markdown.
type HTML struct {
	converter *md.Converter
}

func NewHTML() *HTML {
	converter := md.NewConverter("", true, nil)
	converter.Use(plugin.GitHubFlavored())
	return &HTML{converter: converter}
}

func (h *HTML) Convert(_ context.Context, sourcePath string) (string, error) {
	b, err := os.ReadFile(sourcePath)
	if err != nil {
		return "", err
	}
	return h.ConvertBytes(b)
}

func (h *HTML) ConvertBytes(content []byte) (string, error) {
	markdown, err := h.converter.ConvertString(mainContent(content))
	if err != nil {
		return "", fmt.Errorf("failed to convert html: %w", err)
	}

	markdown = excessiveLinesRe.ReplaceAllString(markdown, "\n\n\n")
	lines := strings.Split(markdown, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " \t")
	}
	return strings.TrimSpace(strings.Join(lines, "\n")) + "\n", nil
}

var boilerplate = map[string]bool{
	"nav": true, "header": true, "footer": true, "aside": true, "script": true,
	"style": true, "noscript": true, "iframe": true, "form": true, "button": true,
}

func mainContent(content []byte) string {
	doc, err := html.Parse(bytes.NewReader(content))
	if err != nil {
		return string(content)
	}

	for _, tag := range []string{"main", "article"} {
		if n := findElement(doc, tag); n != nil {
			return render(n)
		}
	}

	stripElements(doc)
	if body := findElement(doc, "body"); body != nil {
		return render(body)
	}
	return string(content)
}

func findElement(n *html.Node, tag string) *html.Node {
	if n.Type == html.ElementNode && n.Data == tag {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findElement(c, tag); found != nil {
			return found
		}
	}
	return nil
}

func stripElements(n *html.Node) {
	var next *html.Node
	for c := n.FirstChild; c != nil; c = next {
		next = c.NextSibling
		if c.Type == html.ElementNode && boilerplate[c.Data] {
			n.RemoveChild(c)
			continue
		}
		stripElements(c)
	}
}

func render(n *html.Node) string {
	var sb strings.Builder
	if err := html.Render(&sb, n); err != nil {
		return ""
	}
	return sb.String()
}
