package api

import (
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/behailu412/teletok/internal/database"
	"github.com/teris-io/shortid"
)

var allowedPhotoExtensions = map[string]struct{}{
	".png":  {},
	".jpg":  {},
	".jpeg": {},
	".gif":  {},
}

func allowedPhoto(filename string) bool {
	_, ok := allowedPhotoExtensions[strings.ToLower(filepath.Ext(filename))]
	return ok
}

// updateProfile changes the caller's username and/or profile photo.
// Both parts are optional; an empty multipart form is a no-op success.
func (s *TeleTokApp) updateProfile(w http.ResponseWriter, r *http.Request) {
	userId, ok := UserId(r.Context())
	if !ok {
		s.fail(w, "Not authenticated")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes)
	if err := r.ParseMultipartForm(s.maxUploadBytes); err != nil {
		s.fail(w, "Invalid request format")
		return
	}

	params := database.UpdateProfileParams{UserId: userId}

	if username := trimmedFormValue(r, "username"); username != "" {
		taken, err := s.db.UsernameTaken(username, userId)
		if err != nil {
			s.log.Println("username lookup:", err)
			s.fail(w, "Failed to update profile")
			return
		}
		if taken {
			s.fail(w, "Username already taken")
			return
		}

		params.Username = username
	}

	if file, header, err := r.FormFile("profile_photo"); err == nil {
		defer file.Close()

		if allowedPhoto(header.Filename) {
			filename, err := s.savePhoto(file, header.Filename)
			if err != nil {
				s.log.Println("save photo:", err)
				s.fail(w, "Failed to update profile")
				return
			}

			params.ProfilePhoto = filename
		}
	}

	user, err := s.db.UpdateProfile(params)
	if err != nil {
		s.log.Println("update profile:", err)
		s.fail(w, "Failed to update profile")
		return
	}

	s.writeJson(w, http.StatusOK, profileResponse{
		apiResponse:  apiResponse{Success: true},
		Username:     user.Username,
		Phone:        user.Phone,
		ProfilePhoto: user.ProfilePhoto,
	})
}

// savePhoto stores the uploaded file under the upload directory with a
// unique, path-safe name and returns that name.
func (s *TeleTokApp) savePhoto(src multipart.File, origName string) (string, error) {
	sid, err := shortid.Generate()
	if err != nil {
		return "", fmt.Errorf("generate photo id: %w", err)
	}

	filename := sid + "_" + filepath.Base(origName)
	dst, err := os.Create(filepath.Join(s.uploadDir, filename))
	if err != nil {
		return "", fmt.Errorf("create photo file: %w", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		os.Remove(dst.Name())
		return "", fmt.Errorf("write photo file: %w", err)
	}

	return filename, nil
}

// serveUpload serves a stored profile photo, falling back to the
// default image when the file is missing.
func (s *TeleTokApp) serveUpload(w http.ResponseWriter, r *http.Request) {
	filename := filepath.Base(r.PathValue("filename"))
	path := filepath.Join(s.uploadDir, filename)

	if _, err := os.Stat(path); err != nil {
		path = filepath.Join(s.uploadDir, "default.jpg")
	}

	http.ServeFile(w, r, path)
}
