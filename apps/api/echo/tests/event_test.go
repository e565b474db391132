package tests

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gvpclubconnect/clubconnect/core/account"
	"github.com/gvpclubconnect/clubconnect/core/club"
	"github.com/gvpclubconnect/clubconnect/core/event"
	"github.com/gvpclubconnect/clubconnect/testutil"
)

type eventResponseBody struct {
	Message string      `json:"message"`
	Event   event.Event `json:"event"`
}

func Test_eventApi_listing(t *testing.T) {
	app := setup(t)
	robotics := testutil.CreateClub(t, app.Clubs, "Robotics", club.TypeTechnical)
	music := testutil.CreateClub(t, app.Clubs, "Music", club.TypeCultural)

	soon := testutil.CreateEvent(t, app.Events, "Soon", robotics, testutil.Date(1))
	later := testutil.CreateEvent(t, app.Events, "Later", music, testutil.Date(5))
	past := testutil.CreateEvent(t, app.Events, "Past", robotics, testutil.Date(-2))
	older := testutil.CreateEvent(t, app.Events, "Older", music, testutil.Date(-20))

	runTests(t, app, []httpTest{
		{name: "all", path: "/api/events", wantData: marshalList(t, older, past, soon, later)},
		{name: "retrieve", path: "/api/events/" + soon.ID, wantData: marshalObj(t, soon)},
		{
			name: "retrieve (unknown)", path: "/api/events/42",
			wantCode: http.StatusNotFound, wantData: marshalObj(t, httpErr{Message: "event not found"}),
		},
		{name: "by club", path: "/api/events/club/Music", wantData: marshalList(t, older, later)},
		{name: "by club type", path: "/api/events/clubtype/Technical", wantData: marshalList(t, past, soon)},
		{name: "by club type (none)", path: "/api/events/clubtype/Sports", wantData: marshalList(t)},
		{name: "upcoming", path: "/api/events/upcoming", check: wantOrder("Soon", "Later")},
		{name: "upcoming by type", path: "/api/events/upcoming/Cultural", check: wantOrder("Later")},
		{name: "past", path: "/api/events/past", check: wantOrder("Past", "Older")},
		{name: "past by type", path: "/api/events/past/Technical", check: wantOrder("Past")},
	})
}

func wantOrder(names ...string) func(t *testing.T, rec *httptest.ResponseRecorder) {
	return func(t *testing.T, rec *httptest.ResponseRecorder) {
		var events []event.Event
		decode(t, rec, &events)
		got := make([]string, 0, len(events))
		for _, e := range events {
			got = append(got, e.Name)
		}
		assert.Equal(t, names, got)
	}
}

func Test_eventApi_registration(t *testing.T) {
	app := setup(t)
	c := testutil.CreateClub(t, app.Clubs, "Robotics", club.TypeTechnical)
	e := testutil.CreateEvent(t, app.Events, "Hackathon", c, testutil.Date(3))
	path := func(action string) string { return "/api/events/" + action + "/" + e.ID }

	runTests(t, app, []httpTest{
		{
			name: "register", method: http.MethodPost, path: path("register"),
			body: []byte(`{"email":"Asha@gvp.test"}`), wantData: []byte(`{"message":"Registration successful"}`),
		},
		{
			name: "register twice", method: http.MethodPost, path: path("register"),
			body:     []byte(`{"email":"asha@gvp.test"}`),
			wantCode: http.StatusBadRequest, wantData: []byte(`{"message":"Already registered"}`),
		},
		{
			name: "register (unknown event)", method: http.MethodPost, path: "/api/events/register/nope",
			body:     []byte(`{"email":"asha@gvp.test"}`),
			wantCode: http.StatusNotFound, wantData: []byte(`{"message":"event not found"}`),
		},
		{
			name: "register (invalid email)", method: http.MethodPost, path: path("register"),
			body: []byte(`{"email":""}`), wantCode: http.StatusBadRequest,
		},
		{
			name: "remove registration", method: http.MethodPost, path: path("remove-registration"),
			body: []byte(`{"email":"asha@gvp.test"}`), wantData: []byte(`{"message":"Registration removed"}`),
		},
	})

	got, err := app.Events.GetEvent(context.Background(), e.ID)
	require.NoError(t, err)
	assert.Empty(t, got.RegisteredEmails)
}

func Test_eventApi_management(t *testing.T) {
	app := setup(t)
	ctx := context.Background()
	robotics := testutil.CreateClub(t, app.Clubs, "Robotics", club.TypeTechnical)
	music := testutil.CreateClub(t, app.Clubs, "Music", club.TypeCultural)

	admin := testutil.CreateAccount(t, app.Accounts, "Admin", "admin@gvp.test", account.RoleAdmin)
	lead := testutil.CreateAccount(t, app.Accounts, "Ravi", "ravi@gvp.test", account.RoleLead, "Robotics")
	member := testutil.CreateAccount(t, app.Accounts, "Asha", "asha@gvp.test", account.RoleMember)
	testutil.CreateAccount(t, app.Accounts, "Prof", "prof@gvp.test", account.RoleFaculty, "Robotics")
	adminToken, leadToken := getToken(t, app, admin), getToken(t, app, lead)

	hackathon := testutil.CreateEvent(t, app.Events, "Hackathon", robotics, testutil.Date(-1), "asha@gvp.test", "ghost@gvp.test")
	concert := testutil.CreateEvent(t, app.Events, "Concert", music, testutil.Date(4))

	t.Run("create", func(t *testing.T) {
		fields := map[string]string{
			"eventname":       "Bot Wars",
			"clubtype":        "Technical",
			"club":            "Robotics",
			"date":            testutil.Date(10),
			"description":     "robots fight",
			"paymentRequired": "true",
			"paymentLink":     "https://pay.example.com/botwars",
		}

		req, rec := newMultipartRequest(t, "/api/events/add", "", fields)
		app.srv.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusUnauthorized, wantData: marshalObj(t, errMissingToken)}, rec)

		req, rec = newMultipartRequest(t, "/api/events/add", getToken(t, app, member), fields)
		app.srv.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusForbidden, wantData: marshalObj(t, errForbidden)}, rec)

		other := map[string]string{}
		for k, v := range fields {
			other[k] = v
		}
		other["club"] = "Music"
		other["clubtype"] = "Cultural"
		req, rec = newMultipartRequest(t, "/api/events/add", leadToken, other)
		app.srv.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusForbidden, wantData: marshalObj(t, errForbidden)}, rec)

		bad := map[string]string{}
		for k, v := range fields {
			bad[k] = v
		}
		bad["date"] = "10/10/2030"
		req, rec = newMultipartRequest(t, "/api/events/add", leadToken, bad)
		app.srv.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusBadRequest,
			wantData: marshalObj(t, httpErr{
				Message: "date must be a date formatted as YYYY-MM-DD",
				Errors:  map[string]string{"date": "date must be a date formatted as YYYY-MM-DD"},
			}),
		}, rec)

		req, rec = newMultipartRequest(t, "/api/events/add", leadToken, fields, upload{"image", "poster.png", pngHeader})
		app.srv.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusCreated, check: func(t *testing.T, rec *httptest.ResponseRecorder) {
			var created event.Event
			decode(t, rec, &created)
			assert.NotEmpty(t, created.ID)
			assert.Equal(t, "Bot Wars", created.Name)
			assert.Equal(t, event.StatusUpcoming, created.Status)
			assert.Contains(t, rec.Body.String(), `"type":"upcoming"`)
			assert.True(t, created.PaymentRequired)
			assert.Empty(t, created.RegisteredEmails)
			assert.True(t, strings.HasPrefix(created.ImageURL, testutil.FilesURL+"/events/images/"+created.ID+"-"), created.ImageURL)
			assert.True(t, strings.HasPrefix(created.PaymentQRURL, testutil.FilesURL+"/events/payment-qr/"+created.ID+"-"), created.PaymentQRURL)
		}}, rec)
		assert.Len(t, testutil.SentTo(app.Mail, "event_created", "prof@gvp.test"), 1)
	})

	participation := func(email string, participated bool) []byte {
		return marshalObj(t, map[string]interface{}{"userEmail": email, "participated": participated})
	}

	runTests(t, app, []httpTest{
		{
			name: "update date (other club)", method: http.MethodPatch, path: "/api/events/update/" + concert.ID, token: leadToken,
			body: []byte(`{"date":"2030-01-01"}`), wantCode: http.StatusForbidden, wantData: marshalObj(t, errForbidden),
		},
		{
			name: "update date (admin)", method: http.MethodPatch, path: "/api/events/update/" + concert.ID, token: adminToken,
			body: []byte(`{"date":"2020-01-01"}`),
			check: func(t *testing.T, rec *httptest.ResponseRecorder) {
				var resp eventResponseBody
				decode(t, rec, &resp)
				assert.Equal(t, "2020-01-01", resp.Event.Date)
				assert.Equal(t, event.StatusPast, resp.Event.Status)
			},
		},
		{
			name: "mark participation (not registered)", method: http.MethodPost,
			path: "/api/events/mark-participation/" + hackathon.ID, token: leadToken,
			body:     participation("kiran@gvp.test", true),
			wantCode: http.StatusBadRequest, wantData: []byte(`{"message":"User not registered"}`),
		},
		{
			name: "mark participation (missing flag)", method: http.MethodPost,
			path: "/api/events/mark-participation/" + hackathon.ID, token: leadToken,
			body: []byte(`{"userEmail":"asha@gvp.test"}`), wantCode: http.StatusBadRequest,
		},
		{
			name: "mark participation", method: http.MethodPost,
			path: "/api/events/mark-participation/" + hackathon.ID, token: leadToken,
			body: participation("asha@gvp.test", true),
			check: func(t *testing.T, rec *httptest.ResponseRecorder) {
				var resp struct {
					Message   string      `json:"message"`
					Success   bool        `json:"success"`
					UserFound string      `json:"userFound"`
					Event     event.Event `json:"event"`
				}
				decode(t, rec, &resp)
				assert.True(t, resp.Success)
				assert.Equal(t, "member", resp.UserFound)
				assert.Equal(t, []string{"asha@gvp.test"}, resp.Event.ParticipatedEmails)
			},
		},
		{
			name: "mark participation (no account)", method: http.MethodPost,
			path: "/api/events/mark-participation/" + hackathon.ID, token: leadToken,
			body: participation("ghost@gvp.test", true),
			check: func(t *testing.T, rec *httptest.ResponseRecorder) {
				assert.Contains(t, rec.Body.String(), `"userFound":"none"`)
			},
		},
		{
			name: "registered profiles", path: "/api/events/registered-profiles/" + hackathon.ID, token: leadToken,
			wantData: marshalList(t, event.Participant{
				Name:                "Asha",
				Email:               "asha@gvp.test",
				ParticipatedEvents:  []string{"Hackathon-Robotics"},
				ParticipationStatus: "participated",
			}),
		},
		{
			name: "unmark participation", method: http.MethodPost,
			path: "/api/events/mark-participation/" + hackathon.ID, token: leadToken,
			body: participation("asha@gvp.test", false),
			check: func(t *testing.T, rec *httptest.ResponseRecorder) {
				assert.Contains(t, rec.Body.String(), `"message":"Participation removed"`)
			},
		},
		{
			name: "attach document", method: http.MethodPost, path: "/api/events/upload-document/" + hackathon.ID, token: leadToken,
			body: []byte(`{"documentUrl":"https://drive.example.com/report"}`),
			check: func(t *testing.T, rec *httptest.ResponseRecorder) {
				var resp eventResponseBody
				decode(t, rec, &resp)
				assert.Equal(t, "https://drive.example.com/report", resp.Event.DocumentURL)
			},
		},
		{
			name: "delete (other club)", method: http.MethodDelete, path: "/api/events/" + concert.ID, token: leadToken,
			wantCode: http.StatusForbidden, wantData: marshalObj(t, errForbidden),
		},
		{
			name: "delete", method: http.MethodDelete, path: "/api/events/" + hackathon.ID, token: leadToken,
			wantData: []byte(`{"message":"Event deleted"}`),
		},
		{
			name: "delete (gone)", method: http.MethodDelete, path: "/api/events/" + hackathon.ID, token: leadToken,
			wantCode: http.StatusNotFound, wantData: []byte(`{"message":"event not found"}`),
		},
	})

	acc, err := app.Accounts.GetAccount(ctx, "asha@gvp.test", account.RoleMember)
	require.NoError(t, err)
	assert.Empty(t, acc.ParticipatedEvents)

	t.Run("upload document", func(t *testing.T) {
		req, rec := newMultipartRequest(t, "/api/events/upload-document/"+concert.ID, adminToken, nil,
			upload{"document", "report.pdf", []byte("%PDF-1.4\n%report")})
		app.srv.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{check: func(t *testing.T, rec *httptest.ResponseRecorder) {
			var resp eventResponseBody
			decode(t, rec, &resp)
			assert.True(t, strings.HasPrefix(resp.Event.DocumentURL, testutil.FilesURL+"/events/documents/"), resp.Event.DocumentURL)
		}}, rec)

		req, rec = newMultipartRequest(t, "/api/events/upload-document/"+concert.ID, adminToken, nil,
			upload{"document", "notes.txt", []byte("plain notes")})
		app.srv.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusBadRequest,
			wantData: marshalObj(t, httpErr{
				Message: "document: only image or PDF files are allowed",
				Errors:  map[string]string{"document": "only image or PDF files are allowed"},
			}),
		}, rec)
	})

	t.Run("upload image", func(t *testing.T) {
		req, rec := newMultipartRequest(t, "/api/events/upload-image/"+concert.ID, leadToken, nil,
			upload{"image", "poster.png", pngHeader})
		app.srv.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusForbidden, wantData: marshalObj(t, errForbidden)}, rec)

		req, rec = newMultipartRequest(t, "/api/events/upload-image/"+concert.ID, adminToken, nil)
		app.srv.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusBadRequest,
			wantData: marshalObj(t, httpErr{
				Message: "image: no file uploaded",
				Errors:  map[string]string{"image": "no file uploaded"},
			}),
		}, rec)

		req, rec = newMultipartRequest(t, "/api/events/upload-image/"+concert.ID, adminToken, nil,
			upload{"image", "poster.png", pngHeader})
		app.srv.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{check: func(t *testing.T, rec *httptest.ResponseRecorder) {
			var resp eventResponseBody
			decode(t, rec, &resp)
			assert.Equal(t, "Image uploaded", resp.Message)
			assert.True(t, strings.HasPrefix(resp.Event.ImageURL, testutil.FilesURL+"/events/images/"+concert.ID+"-"), resp.Event.ImageURL)
		}}, rec)
	})
}

func Test_eventApi_leadTokenOutlivesClubs(t *testing.T) {
	app := setup(t)
	robotics := testutil.CreateClub(t, app.Clubs, "Robotics", club.TypeTechnical)
	music := testutil.CreateClub(t, app.Clubs, "Music", club.TypeCultural)
	hackathon := testutil.CreateEvent(t, app.Events, "Hackathon", robotics, testutil.Date(3))
	concert := testutil.CreateEvent(t, app.Events, "Concert", music, testutil.Date(4))

	admin := testutil.CreateAccount(t, app.Accounts, "Admin", "admin@gvp.test", account.RoleAdmin)
	ravi := testutil.CreateAccount(t, app.Accounts, "Ravi", "ravi@gvp.test", account.RoleLead, "Robotics")
	meera := testutil.CreateAccount(t, app.Accounts, "Meera", "meera@gvp.test", account.RoleLead, "Music")
	raviToken, meeraToken := getToken(t, app, ravi), getToken(t, app, meera)

	// Meera's token still lists Music after the lead moves to Robotics.
	meera.SelectedClubs = []string{"Robotics"}
	_, err := app.Accounts.UpdateAccount(context.Background(), meera)
	require.NoError(t, err)

	runTests(t, app, []httpTest{
		{
			name: "lead before demotion", method: http.MethodPatch, path: "/api/events/update/" + hackathon.ID, token: raviToken,
			body: []byte(`{"date":"2030-01-01"}`),
		},
		{
			name: "demote", method: http.MethodPut, path: "/api/depromote-lead", token: getToken(t, app, admin),
			body: []byte(`{"email":"ravi@gvp.test"}`),
		},
		{
			name: "demoted lead", method: http.MethodPatch, path: "/api/events/update/" + hackathon.ID, token: raviToken,
			body: []byte(`{"date":"2030-02-02"}`), wantCode: http.StatusForbidden, wantData: marshalObj(t, errForbidden),
		},
		{
			name: "demoted lead (club)", method: http.MethodPost, path: "/api/clubs/update", token: raviToken,
			body: []byte(`{"clubName":"Robotics","description":"bots"}`), wantCode: http.StatusForbidden,
			wantData: marshalObj(t, errForbidden),
		},
		{
			name: "club removed from lead", method: http.MethodPatch, path: "/api/events/update/" + concert.ID, token: meeraToken,
			body: []byte(`{"date":"2030-03-03"}`), wantCode: http.StatusForbidden, wantData: marshalObj(t, errForbidden),
		},
		{
			name: "club given to lead", method: http.MethodPatch, path: "/api/events/update/" + hackathon.ID, token: meeraToken,
			body: []byte(`{"date":"2030-04-04"}`),
			check: func(t *testing.T, rec *httptest.ResponseRecorder) {
				var resp eventResponseBody
				decode(t, rec, &resp)
				assert.Equal(t, "2030-04-04", resp.Event.Date)
			},
		},
	})
}
