package exporter

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"treevault/pkg/core"
	"treevault/pkg/gitobj"
)

// PrintCommit 打印 Commit 头信息
func PrintCommit(c *core.Commit, w io.Writer) {
	fmt.Fprintf(w, "Type:    Commit\n")
	fmt.Fprintf(w, "Hash:    %s\n", c.ID())
	fmt.Fprintf(w, "Tree:    %s\n", c.TreeCid.Hash)
	for _, p := range c.Parents {
		fmt.Fprintf(w, "Parent:  %s\n", p.Hash)
	}
	fmt.Fprintf(w, "Author:  %s\n", c.Author)
	fmt.Fprintf(w, "Time:    %s\n", time.Unix(c.Timestamp, 0).Format(time.RFC3339))
	fmt.Fprintf(w, "\n%s\n", c.Message)
}

// PrintObject 打印 Blob 的元数据或者 Tree 的一层条目
func PrintObject(ctx context.Context, obj gitobj.Object, w io.Writer) error {
	switch o := obj.(type) {
	case *gitobj.Blob:
		return printBlob(ctx, o, w)
	case *gitobj.Tree:
		return printTree(ctx, o, w)
	default:
		return fmt.Errorf("unknown object %T", obj)
	}
}

func printBlob(ctx context.Context, b *gitobj.Blob, w io.Writer) error {
	size, err := b.Size(ctx)
	if err != nil {
		return err
	}
	binary, err := b.Binary(ctx)
	if err != nil {
		return err
	}
	lines, err := b.LineCount(ctx)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Type:\tBlob\n")
	fmt.Fprintf(tw, "Hash:\t%s\n", b.ID())
	if b.Path() != "" {
		fmt.Fprintf(tw, "Path:\t%s\n", b.Path())
	}
	fmt.Fprintf(tw, "Mode:\t%s\n", b.Mode())
	fmt.Fprintf(tw, "Size:\t%s\n", fmtSize(size))
	fmt.Fprintf(tw, "Binary:\t%t\n", binary)
	fmt.Fprintf(tw, "Lines:\t%d\n", lines)
	fmt.Fprintf(tw, "MIME:\t%s\n", b.MimeType())
	return tw.Flush()
}

func printTree(ctx context.Context, t *gitobj.Tree, w io.Writer) error {
	entries, err := t.Entries(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "Type: Tree\nHash: %s\n\n", t.ID())

	tw := tabwriter.NewWriter(w, 0, 0, 3, ' ', 0)
	fmt.Fprintf(tw, "MODE\tTYPE\tHASH\tSIZE\tNAME\n")
	for _, o := range entries {
		size := "-"
		if b, ok := o.(*gitobj.Blob); ok {
			n, err := b.Size(ctx)
			if err != nil {
				return err
			}
			size = fmtSize(n)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", o.Mode(), o.Kind(), o.ID().Short(), size, o.Name())
	}
	return tw.Flush()
}

func fmtSize(s int64) string {
	if s < 1024 {
		return fmt.Sprintf("%dB", s)
	} else if s < 1024*1024 {
		return fmt.Sprintf("%.1fKB", float64(s)/1024)
	}
	return fmt.Sprintf("%.2fMB", float64(s)/1024/1024)
}
