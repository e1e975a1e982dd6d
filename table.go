package main

import (
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/brahimtod123-lgtm/Souhail-torrent/models"
)

func renderStreams(list []models.StreamDescriptor) string {
	if len(list) == 0 {
		return "no streams found"
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"#", "State", "Quality", "Size", "Seeders", "Source", "Title", "Link"})

	for i, d := range list {
		size := "?"
		if d.Info.SizeBytes > 0 {
			size = humanize.IBytes(d.Info.SizeBytes)
		}
		link := d.PlayableURL
		if link == "" {
			link = d.InfoHash
		}
		tw.AppendRow(table.Row{
			i + 1,
			strings.ReplaceAll(string(d.Result.State), "_", " "),
			string(d.Info.Quality),
			size,
			strconv.FormatUint(uint64(d.Info.Seeders), 10),
			d.Candidate.Source,
			text.Trim(d.Info.CleanTitle, 48),
			link,
		})
	}

	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Align: text.AlignRight},
		{Number: 4, Align: text.AlignRight},
		{Number: 5, Align: text.AlignRight},
	})
	return tw.Render()
}
