package companion

import (
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// wikiInfo 是从 wiki 信息框中提取的字段。
type wikiInfo struct {
	Title               string
	ResourcePackVersion string
}

func parseWikiInfo(r io.Reader) (wikiInfo, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return wikiInfo{}, fmt.Errorf("parse wiki page: %w", err)
	}

	// 所有匹配行的单元格按文档顺序拼接
	var title, resource strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.DataAtom == atom.Tr {
			if header := firstHeader(n); header != nil {
				label := textContent(header)
				if strings.Contains(label, "Official name") || strings.Contains(label, "Snapshot") {
					for _, td := range dataCells(n) {
						title.WriteString(textContent(td))
					}
				}
				if strings.Contains(label, "Resource pack format") {
					for _, td := range dataCells(n) {
						resource.WriteString(paragraphText(td))
					}
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	return wikiInfo{
		Title:               strings.TrimSpace(strings.ReplaceAll(title.String(), "\n", "")),
		ResourcePackVersion: strings.TrimSpace(resource.String()),
	}, nil
}

// firstHeader 返回行内第一个 th。
func firstHeader(tr *html.Node) *html.Node {
	for c := tr.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && c.DataAtom == atom.Th {
			return c
		}
	}
	return nil
}

// dataCells 按文档顺序返回行内的 td，不进入已收集单元格的子节点。
func dataCells(tr *html.Node) []*html.Node {
	var cells []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == html.ElementNode && c.DataAtom == atom.Td {
				cells = append(cells, c)
				continue
			}
			walk(c)
		}
	}
	walk(tr)
	return cells
}

func paragraphText(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.DataAtom == atom.P {
			b.WriteString(textContent(n))
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}

func textContent(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}
