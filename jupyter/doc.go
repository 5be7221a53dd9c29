// Package jupyter is the HTTP client for the notebook execution backend: a
// Jupyter server extended with a custom kernel execution API.
//
// # Error taxonomy
//
// Every failure returned by [Client] is a *[Error] whose [Code] belongs to a
// closed vocabulary (UNAUTHORIZED, KERNEL_NOT_FOUND, KERNEL_DEAD,
// NOTEBOOK_NOT_FOUND, INVALID_CELL_INDEX, EXECUTION_TIMEOUT,
// CONNECTION_ERROR, VALIDATION_ERROR, HTTP_ERROR, INTERNAL_ERROR). The
// mapping from transport outcome to code is implemented by [Translate] as a
// strict decision list:
//
//  1. dial or DNS failure            -> CONNECTION_ERROR
//  2. transport timeout              -> CONNECTION_ERROR (timeout message)
//  3. HTTP 401                       -> UNAUTHORIZED
//  4. {"error":{"code","message"}}   -> code carried by the payload
//  5. bare 404 with kernel/path      -> KERNEL_NOT_FOUND / NOTEBOOK_NOT_FOUND
//  6. any other HTTP status          -> HTTP_ERROR
//  7. anything else                  -> INTERNAL_ERROR
//
// Errors support errors.Is against the per-code sentinels:
//
//	if errors.Is(err, jupyter.ErrKernelNotFound) { ... }
//
// # Wire format
//
// The custom API wraps payloads in {"data": ...}; the standard
// /api/sessions endpoint does not.
package jupyter
