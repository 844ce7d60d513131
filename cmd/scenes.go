package cmd

import (
	"bytes"

	"github.com/df07/go-realtime-restir/pkg/scenes"
	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli"
)

// ListScenes prints the built-in scenes and the discovered PLY models.
func ListScenes(ctx *cli.Context) error {
	if err := setupLogging(ctx); err != nil {
		return err
	}

	response, err := scenes.ListAllScenes()
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	table := tablewriter.NewWriter(&buf)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	table.SetHeader([]string{"Group", "ID", "Name", "Description"})
	for _, group := range response.Groups {
		for i, info := range group.Scenes {
			groupName := group.Name
			if i > 0 {
				groupName = ""
			}
			table.Append([]string{groupName, info.ID, info.DisplayName, info.Description})
		}
	}
	table.Render()

	logger.Noticef("available scenes\n%s", buf.String())
	return nil
}
