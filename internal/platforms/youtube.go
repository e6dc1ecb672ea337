package platforms

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/maheshrc27/crosspost/internal/models"
	"golang.org/x/oauth2"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"
)

const youtubeCategoryPeopleAndBlogs = "22"

type YoutubeAdapter struct {
	tokens TokenProvider
	media  MediaStore
	// opts are appended to every youtube.NewService call.
	opts []option.ClientOption
}

func NewYoutubeAdapter(tokens TokenProvider, media MediaStore, opts ...option.ClientOption) *YoutubeAdapter {
	return &YoutubeAdapter{tokens: tokens, media: media, opts: opts}
}

func (a *YoutubeAdapter) Platform() models.Platform {
	return models.PlatformYoutube
}

func (a *YoutubeAdapter) service(ctx context.Context, userID int64) (*youtube.Service, error) {
	accessToken, err := a.tokens.GetValidAccessToken(ctx, userID, models.PlatformYoutube)
	if err != nil {
		return nil, err
	}

	opts := append([]option.ClientOption{
		option.WithTokenSource(oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken})),
	}, a.opts...)

	service, err := youtube.NewService(ctx, opts...)
	if err != nil {
		slog.Info(err.Error())
		return nil, fmt.Errorf("create youtube client: %w", err)
	}
	return service, nil
}

// Upload streams the media asset into videos.insert.
func (a *YoutubeAdapter) Upload(ctx context.Context, params PublishParams) (*UploadResult, error) {
	if params.MediaAsset == nil || params.MediaAsset.Type != models.MediaTypeVideo {
		return nil, errors.New("YouTube only supports video uploads")
	}

	service, err := a.service(ctx, params.UserID)
	if err != nil {
		return nil, err
	}

	stream, err := a.media.Open(ctx, params.MediaAsset.StorageKey)
	if err != nil {
		return nil, fmt.Errorf("open media %s: %w", params.MediaAsset.StorageKey, err)
	}
	defer stream.Close()

	meta := ResolveMetadata(params.Post, params.Destination)
	video := &youtube.Video{
		Snippet: &youtube.VideoSnippet{
			Title:       meta.Title,
			Description: meta.Description,
			CategoryId:  youtubeCategoryPeopleAndBlogs,
		},
		Status: &youtube.VideoStatus{
			PrivacyStatus: YoutubePrivacy(meta.Visibility),
		},
	}

	var mediaOpts []googleapi.MediaOption
	if params.MediaAsset.MimeType != "" {
		mediaOpts = append(mediaOpts, googleapi.ContentType(params.MediaAsset.MimeType))
	}

	response, err := service.Videos.Insert([]string{"snippet", "status"}, video).
		Media(stream, mediaOpts...).
		Context(ctx).
		Do()
	if err != nil {
		slog.Info(err.Error())
		return nil, fmt.Errorf("youtube upload: %w", err)
	}
	if response.Id == "" {
		return nil, errors.New("YouTube did not return a video id")
	}

	return &UploadResult{ExternalMediaID: response.Id, ExternalPostID: response.Id}, nil
}

// Finalize checks that YouTube kept the uploaded video.
func (a *YoutubeAdapter) Finalize(ctx context.Context, params PublishParams, upload *UploadResult) (*PublishResult, error) {
	if upload == nil || upload.ExternalPostID == "" {
		return nil, errors.New("no uploaded video to finalize")
	}

	service, err := a.service(ctx, params.UserID)
	if err != nil {
		return nil, err
	}

	response, err := service.Videos.List([]string{"status"}).Id(upload.ExternalPostID).Context(ctx).Do()
	if err != nil {
		slog.Info(err.Error())
		return nil, fmt.Errorf("youtube status check: %w", err)
	}
	if len(response.Items) == 0 {
		return nil, fmt.Errorf("youtube video %s not found after upload", upload.ExternalPostID)
	}

	if status := response.Items[0].Status; status != nil {
		switch status.UploadStatus {
		case "rejected":
			return nil, fmt.Errorf("youtube rejected video %s: %s", upload.ExternalPostID, status.RejectionReason)
		case "failed":
			return nil, fmt.Errorf("youtube failed to process video %s: %s", upload.ExternalPostID, status.FailureReason)
		}
	}

	return &PublishResult{ExternalPostID: upload.ExternalPostID, ExternalMediaID: upload.ExternalMediaID}, nil
}
