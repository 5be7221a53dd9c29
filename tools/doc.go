// Package tools implements the notebook tools exposed over MCP.
//
// [New] returns a local backend named "jupyter" holding every tool. Each
// tool validates its arguments, resolves session handles through the
// session resolver, calls the notebook server and answers with a JSON
// envelope:
//
//	{"success": true, ...}
//	{"success": false, "error": {"code": "KERNEL_NOT_FOUND", "message": "..."}}
//
// Failed envelopes also set IsError on the MCP result. Images produced by
// execute_code are kept in the image store and returned as references whose
// resource_uri can be read back through get_image_resource or an MCP
// resources/read request.
package tools
