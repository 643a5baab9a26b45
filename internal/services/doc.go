// Package services implements HTTP clients for the Silver Snack backend.
//
// # Transport
//
// [APIService] owns the HTTP details shared by every endpoint: base URL, per-request timeout,
// a client-side rate limit, bearer tokens drawn from an [oauth2.TokenSource], and an X-Request-ID per call.
//
// Every endpoint answers with the envelope {success, message, errorCode, result}.
// A 2xx status with success:false is a failure just like a non-2xx status.
//
// # Endpoint Services
//
//   - [LikeService] : GET /likes/snacks, POST /likes/snacks/{id}
//   - [SnackService] : GET /api/snacks, GET /api/snacks/{id}, POST /recommend
//   - [UserService] : POST /user/logIn, POST /user/signUp, GET /user/getInfo, PATCH /user/profile
//
// # Error Handling
//
// Services return errors wrapping sentinels from the shared package:
//   - [shared.ErrNotAuthenticated] : the endpoint needs a session and none is stored
//   - [shared.ErrAPIRequest] : non-2xx or success:false, carried by [*APIError]
//   - [shared.ErrNetwork] : transport failure or a body that is not the expected JSON
//   - [shared.ErrTimeout] : the request deadline passed
//   - [shared.ErrSnackNotFound] : detail lookup for an unknown id
//
// Backend field names are normalized into [models] types at decode time.
package services
