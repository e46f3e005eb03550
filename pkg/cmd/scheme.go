package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/yeisme/advstorage/pkg/internal/catalog"
	"github.com/yeisme/advstorage/pkg/layout"
)

var (
	schemeOverwrite   bool
	schemeTagsFile    string
	schemeDicomFile   string
	schemeUUID        string
	schemeRoot        string
	schemeOtherPrefix string

	schemeCmd = &cobra.Command{
		Use:   "scheme",
		Short: "naming scheme tools",
	}

	// 校验命名模板能否保证路径唯一.
	schemeCheckCmd = &cobra.Command{
		Use:   "check <scheme>",
		Short: "validate a naming scheme",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := layout.ValidateNamingScheme(args[0], schemeOverwrite); err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), "scheme ok")

			return nil
		},
	}

	// 用标签 JSON 或 DICOM 文件预览路径.
	schemeRenderCmd = &cobra.Command{
		Use:   "render <scheme>",
		Short: "preview the path a naming scheme produces",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tags, err := loadTags()
			if err != nil {
				return err
			}

			reg := layout.NewRegistry()
			if err := reg.SetNamingScheme(args[0], schemeOverwrite); err != nil {
				return err
			}

			reg.SetOtherAttachmentsPrefix(schemeOtherPrefix)

			id := schemeUUID
			if id == "" {
				id = uuid.NewString()
			}

			rel, err := reg.RelativePathFor(tags, id, layout.ContentDicom, false)
			if err != nil {
				return err
			}

			if rel == "" {
				if rel, err = layout.LegacyRelativePath(id); err != nil {
					return err
				}
			}

			if schemeRoot != "" {
				rel = filepath.Join(schemeRoot, rel)
			}

			fmt.Fprintln(cmd.OutOrStdout(), rel)

			return nil
		},
	}
)

func loadTags() (layout.Tags, error) {
	switch {
	case schemeDicomFile != "":
		data, err := os.ReadFile(schemeDicomFile)
		if err != nil {
			return nil, err
		}

		return catalog.ParseTags(data)
	case schemeTagsFile != "":
		data, err := os.ReadFile(schemeTagsFile)
		if err != nil {
			return nil, err
		}

		var tags layout.Tags
		if err := sonic.Unmarshal(data, &tags); err != nil {
			return nil, fmt.Errorf("parse tags %s: %w", schemeTagsFile, err)
		}

		return tags, nil
	default:
		return nil, errors.New("either --tags or --dicom is required")
	}
}

// registerSchemeCommands 注册命名模板相关命令.
func registerSchemeCommands() {
	schemeCmd.PersistentFlags().BoolVar(&schemeOverwrite, "overwrite-instances", false,
		"the host overwrites instances, the scheme must contain {UUID}")

	schemeRenderCmd.Flags().StringVar(&schemeTagsFile, "tags", "", "JSON file with tag name to value")
	schemeRenderCmd.Flags().StringVar(&schemeDicomFile, "dicom", "", "DICOM file to read the tags from")
	schemeRenderCmd.Flags().StringVar(&schemeUUID, "uuid", "", "attachment uuid, random when empty")
	schemeRenderCmd.Flags().StringVar(&schemeRoot, "root", "", "storage root to prepend")
	schemeRenderCmd.Flags().StringVar(&schemeOtherPrefix, "other-prefix", "", "prefix for non-DICOM attachments")

	schemeCmd.AddCommand(schemeCheckCmd)
	schemeCmd.AddCommand(schemeRenderCmd)
	rootCmd.AddCommand(schemeCmd)
}
