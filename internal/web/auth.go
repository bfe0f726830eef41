package web

import (
	"errors"
	"io"
	"net/http"

	"github.com/erazemk/katalog/internal/auth"
	"github.com/erazemk/katalog/internal/client"
	"github.com/erazemk/katalog/internal/imaging"
	"github.com/erazemk/katalog/internal/model"
)

type signInPage struct {
	PageData
	Email string
}

type signUpPage struct {
	PageData
	Form model.Registration
}

// SignInPage handles GET /signin.
func (s *Server) SignInPage(w http.ResponseWriter, r *http.Request) {
	page := &signInPage{PageData: PageData{Title: "Sign in"}}
	if r.URL.Query().Get("registered") != "" {
		page.Success = "Account created. You can sign in now."
	}
	s.Templates.Render(w, "signin.html", page)
}

// SignInSubmit handles POST /signin.
func (s *Server) SignInSubmit(w http.ResponseWriter, r *http.Request) {
	email := r.FormValue("email")
	password := r.FormValue("password")

	if err := s.App.Auth.Login(r.Context(), email, password); err != nil {
		s.Templates.Render(w, "signin.html", &signInPage{
			PageData: PageData{Title: "Sign in", Error: auth.Message(err)},
			Email:    email,
		})
		return
	}

	s.App.Start(r.Context())
	http.Redirect(w, r, "/items", http.StatusSeeOther)
}

// SignUpPage handles GET /signup.
func (s *Server) SignUpPage(w http.ResponseWriter, r *http.Request) {
	s.Templates.Render(w, "signup.html", &signUpPage{
		PageData: PageData{Title: "Sign up"},
		Form:     model.Registration{Role: model.RoleBuyer},
	})
}

// SignUpSubmit handles POST /signup.
func (s *Server) SignUpSubmit(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, imaging.MaxPhotoSize+1<<20)
	if err := r.ParseMultipartForm(imaging.MaxPhotoSize); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		s.Templates.Render(w, "signup.html", &signUpPage{
			PageData: PageData{Title: "Sign up", Error: imaging.ErrTooLarge.Error()},
			Form:     model.Registration{Role: model.RoleBuyer},
		})
		return
	}

	reg := model.Registration{
		FirstName:       r.FormValue("first_name"),
		LastName:        r.FormValue("last_name"),
		Email:           r.FormValue("email"),
		Password:        r.FormValue("password"),
		ConfirmPassword: r.FormValue("confirm_password"),
		Phone:           r.FormValue("phone"),
		Role:            r.FormValue("role"),
	}

	var picture *client.File
	if f, h, err := r.FormFile("pdp"); err == nil {
		data, err := io.ReadAll(f)
		f.Close()
		if err == nil && len(data) > 0 {
			picture = &client.File{Name: h.Filename, ContentType: h.Header.Get("Content-Type"), Data: data}
		}
	}

	if err := s.App.Auth.Register(r.Context(), reg, picture); err != nil {
		reg.Password, reg.ConfirmPassword = "", ""
		s.Templates.Render(w, "signup.html", &signUpPage{
			PageData: PageData{Title: "Sign up", Error: auth.Message(err)},
			Form:     reg,
		})
		return
	}

	http.Redirect(w, r, "/signin?registered=1", http.StatusSeeOther)
}

// SignOut handles POST /signout.
func (s *Server) SignOut(w http.ResponseWriter, r *http.Request) {
	if err := s.App.Auth.Logout(r.Context()); err != nil {
		s.Logger.Error("failed to sign out", "error", err)
	}
	s.App.Form.Cancel()
	http.Redirect(w, r, "/signin", http.StatusSeeOther)
}
