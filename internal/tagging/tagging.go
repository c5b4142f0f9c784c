// Package tagging writes metadata tags to produced media files.
package tagging

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/bogem/id3v2/v2"
	"github.com/go-flac/flacpicture"
	"github.com/go-flac/flacvorbis"
	flac "github.com/go-flac/go-flac"

	"github.com/TaehongKim/PersonalAudio-sub000/internal/domain"
)

// TagFile writes title/artist metadata (and optional cover art) to the file.
// MP4 containers are skipped; yt-dlp embeds metadata for those itself.
func TagFile(path string, file *domain.File, coverArt []byte) error {
	ext := strings.ToLower(filepath.Ext(path))

	switch ext {
	case ".mp3":
		return tagMP3(path, file, coverArt)
	case ".flac":
		return tagFLAC(path, file, coverArt)
	case ".mp4", ".m4a":
		return nil
	default:
		return fmt.Errorf("unsupported file format: %s", ext)
	}
}

func tagMP3(path string, file *domain.File, coverArt []byte) error {
	tag, err := id3v2.Open(path, id3v2.Options{Parse: true})
	if err != nil {
		return fmt.Errorf("failed to open mp3 for tagging: %w", err)
	}
	defer tag.Close()

	tag.SetDefaultEncoding(id3v2.EncodingUTF8)
	tag.SetTitle(file.Title)
	tag.SetArtist(file.Artist)
	if file.GroupName != "" {
		tag.SetAlbum(file.GroupName)
	}

	if len(coverArt) > 0 {
		tag.AddAttachedPicture(id3v2.PictureFrame{
			Encoding:    id3v2.EncodingUTF8,
			MimeType:    "image/jpeg",
			PictureType: id3v2.PTFrontCover,
			Description: "Front cover",
			Picture:     coverArt,
		})
	}

	if err := tag.Save(); err != nil {
		return fmt.Errorf("failed to save mp3 tags: %w", err)
	}
	return nil
}

func tagFLAC(path string, file *domain.File, coverArt []byte) error {
	f, err := flac.ParseFile(path)
	if err != nil {
		return fmt.Errorf("failed to parse flac for tagging: %w", err)
	}

	// Drop any existing vorbis comment; we write a fresh one.
	var kept []*flac.MetaDataBlock
	for _, block := range f.Meta {
		if block.Type != flac.VorbisComment && block.Type != flac.Picture {
			kept = append(kept, block)
		}
	}
	f.Meta = kept

	cmt := flacvorbis.New()
	if err := cmt.Add(flacvorbis.FIELD_TITLE, file.Title); err != nil {
		return fmt.Errorf("failed to add flac title: %w", err)
	}
	if file.Artist != "" {
		if err := cmt.Add(flacvorbis.FIELD_ARTIST, file.Artist); err != nil {
			return fmt.Errorf("failed to add flac artist: %w", err)
		}
	}
	if file.GroupName != "" {
		if err := cmt.Add(flacvorbis.FIELD_ALBUM, file.GroupName); err != nil {
			return fmt.Errorf("failed to add flac album: %w", err)
		}
	}
	cmtBlock := cmt.Marshal()
	f.Meta = append(f.Meta, &cmtBlock)

	if len(coverArt) > 0 {
		pic, err := flacpicture.NewFromImageData(flacpicture.PictureTypeFrontCover, "Front cover", coverArt, "image/jpeg")
		if err != nil {
			return fmt.Errorf("failed to build flac picture block: %w", err)
		}
		picBlock := pic.Marshal()
		f.Meta = append(f.Meta, &picBlock)
	}

	if err := f.Save(path); err != nil {
		return fmt.Errorf("failed to save flac tags: %w", err)
	}
	return nil
}
