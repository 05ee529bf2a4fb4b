// @title           storybooks API
// @version         1.0
// @description     Read and write stories. Authenticate with a personal access token.
// @BasePath        /api/v1
// @securityDefinitions.apikey BearerToken
// @in              header
// @name            Authorization
// @description     Type "Bearer" followed by a space and your API token. Example: "Bearer st_xxx"
package api
