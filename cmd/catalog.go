/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/coursehub/apiserver/internal/db"
	"github.com/coursehub/apiserver/internal/services"
	"github.com/coursehub/apiserver/internal/storage"
	"github.com/coursehub/apiserver/internal/store"
	"github.com/coursehub/apiserver/types"
	"github.com/gabriel-vasile/mimetype"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var (
	courseInput types.Course
	videoInput  types.Video
	videoFile   string
)

// catalogCmd represents the catalog command.
var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Manage courses and videos",
}

var catalogAddCourseCmd = &cobra.Command{
	Use:   "add-course",
	Short: "Create a course",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		catalog, closeFn, err := openCatalog(ctx, false)
		if err != nil {
			return err
		}
		defer closeFn()

		course, err := catalog.AddCourse(ctx, courseInput)
		if err != nil {
			return err
		}
		zerolog.Ctx(ctx).Info().Int("course_id", course.ID).Str("title", course.Title).Msg("course created")
		return printJSON(cmd, course)
	},
}

var catalogAddVideoCmd = &cobra.Command{
	Use:   "add-video",
	Short: "Add a video to a course from a local file or an external URL",
	RunE: func(cmd *cobra.Command, args []string) error {
		if (videoFile == "") == (videoInput.URL == "") {
			return errors.New("exactly one of --file or --url is required")
		}
		ctx := cmd.Context()
		catalog, closeFn, err := openCatalog(ctx, videoFile != "")
		if err != nil {
			return err
		}
		defer closeFn()

		var upload *services.VideoUpload
		if videoFile != "" {
			f, err := os.Open(videoFile)
			if err != nil {
				return err
			}
			defer f.Close()

			info, err := f.Stat()
			if err != nil {
				return err
			}
			mtype, err := mimetype.DetectFile(videoFile)
			if err != nil {
				return fmt.Errorf("detect content type: %w", err)
			}
			upload = &services.VideoUpload{
				Filename:    filepath.Base(videoFile),
				ContentType: mtype.String(),
				Size:        info.Size(),
				Body:        f,
			}
		}

		video, err := catalog.AddVideo(ctx, videoInput, upload)
		if err != nil {
			return err
		}
		zerolog.Ctx(ctx).Info().
			Int("course_id", video.CourseID).
			Int("video_id", video.ID).
			Str("object_key", video.ObjectKey).
			Msg("video added")
		return printJSON(cmd, video)
	},
}

var catalogListCmd = &cobra.Command{
	Use:   "list",
	Short: "List courses with their videos",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		catalog, closeFn, err := openCatalog(ctx, false)
		if err != nil {
			return err
		}
		defer closeFn()

		entries, err := catalog.List(ctx)
		if err != nil {
			return err
		}
		return printJSON(cmd, entries)
	},
}

func init() {
	rootCmd.AddCommand(catalogCmd)
	catalogCmd.AddCommand(catalogAddCourseCmd, catalogAddVideoCmd, catalogListCmd)

	courseFlags := catalogAddCourseCmd.Flags()
	courseFlags.StringVar(&courseInput.Title, "title", "", "course title")
	courseFlags.StringVar(&courseInput.Description, "description", "", "course description")
	courseFlags.StringVar(&courseInput.Instructor, "instructor", "", "instructor name")
	courseFlags.Int64Var(&courseInput.PriceCents, "price-cents", 0, "price in cents")
	_ = catalogAddCourseCmd.MarkFlagRequired("title")

	videoFlags := catalogAddVideoCmd.Flags()
	videoFlags.IntVar(&videoInput.CourseID, "course-id", 0, "course the video belongs to")
	videoFlags.StringVar(&videoInput.Title, "title", "", "video title")
	videoFlags.StringVar(&videoInput.Description, "description", "", "video description")
	videoFlags.IntVar(&videoInput.Position, "position", 0, "order within the course")
	videoFlags.IntVar(&videoInput.DurationSeconds, "duration", 0, "length in seconds")
	videoFlags.StringVar(&videoInput.URL, "url", "", "externally hosted video url")
	videoFlags.StringVar(&videoFile, "file", "", "local video file to upload to object storage")
	_ = catalogAddVideoCmd.MarkFlagRequired("course-id")
	_ = catalogAddVideoCmd.MarkFlagRequired("title")
}

// openCatalog connects to the database and, when uploads are needed, to
// object storage. The returned func releases both.
func openCatalog(ctx context.Context, withObjects bool) (*services.CatalogService, func(), error) {
	dbConn, err := db.Open(ctx, cfg.Database)
	if err != nil {
		return nil, nil, err
	}
	closeFn := func() { _ = dbConn.Close() }

	var objects services.ObjectStore
	if withObjects {
		objects, err = openObjects(ctx)
		if err != nil {
			closeFn()
			return nil, nil, err
		}
	}

	return services.NewCatalogService(
		store.NewCourseRepository(dbConn),
		store.NewVideoRepository(dbConn),
		objects,
	), closeFn, nil
}

func openObjects(ctx context.Context) (services.ObjectStore, error) {
	objects, err := storage.NewFromConfig(ctx, cfg.Storage)
	if err != nil {
		return nil, err
	}
	if objects == nil {
		return nil, errors.New("STORAGE_BACKEND must be set to upload files")
	}
	if err := objects.EnsureBucket(ctx); err != nil {
		return nil, fmt.Errorf("ensure bucket %s: %w", objects.Bucket(), err)
	}
	return objects, nil
}

func printJSON(cmd *cobra.Command, value any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(value)
}
