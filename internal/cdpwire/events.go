// Package cdpwire holds the CDP JSON shapes the Mapper core actually reads
// and writes. Rather than depending on cdproto's full generated domain
// packages (hundreds of types for protocol surface this core never touches),
// these are hand-written against the documented CDP wire format for exactly
// the fields spec.md names. The envelope itself (id/method/params/sessionId)
// and the handful of identifier types shared with cdproto (MethodType,
// target.SessionID, target.ID) are the teacher's actual dependency,
// github.com/chromedp/cdproto — see internal/cdpmux.
package cdpwire

import "encoding/json"

// --- Target domain ---

type TargetInfo struct {
	TargetID        string `json:"targetId"`
	Type            string `json:"type"`
	Title           string `json:"title"`
	URL             string `json:"url"`
	Attached        bool   `json:"attached"`
	OpenerID        string `json:"openerId,omitempty"`
	CanAccessOpener bool   `json:"canAccessOpener"`
	BrowserContextID string `json:"browserContextId,omitempty"`
}

type EventAttachedToTarget struct {
	SessionID        string     `json:"sessionId"`
	TargetInfo       TargetInfo `json:"targetInfo"`
	WaitingForDebugger bool     `json:"waitingForDebugger"`
}

type EventDetachedFromTarget struct {
	SessionID string `json:"sessionId"`
	TargetID  string `json:"targetId,omitempty"`
}

type EventTargetInfoChanged struct {
	TargetInfo TargetInfo `json:"targetInfo"`
}

type EventTargetCrashed struct {
	TargetID  string `json:"targetId"`
	Status    string `json:"status"`
	ErrorCode int    `json:"errorCode"`
}

type SetAutoAttachParams struct {
	AutoAttach             bool `json:"autoAttach"`
	WaitForDebuggerOnStart bool `json:"waitForDebuggerOnStart"`
	Flatten                bool `json:"flatten"`
}

type AttachToTargetParams struct {
	TargetID string `json:"targetId"`
	Flatten  bool   `json:"flatten"`
}

type AttachToTargetResult struct {
	SessionID string `json:"sessionId"`
}

type DetachFromTargetParams struct {
	SessionID string `json:"sessionId,omitempty"`
	TargetID  string `json:"targetId,omitempty"`
}

type SetDiscoverTargetsParams struct {
	Discover bool `json:"discover"`
}

type CreateTargetParams struct {
	URL              string `json:"url"`
	BrowserContextID string `json:"browserContextId,omitempty"`
	NewWindow        bool   `json:"newWindow,omitempty"`
	Background       bool   `json:"background,omitempty"`
}

type CreateTargetResult struct {
	TargetID string `json:"targetId"`
}

type CloseTargetParams struct {
	TargetID string `json:"targetId"`
}

type CloseTargetResult struct {
	Success bool `json:"success"`
}

// --- Page domain ---

type Frame struct {
	ID             string `json:"id"`
	ParentID       string `json:"parentId,omitempty"`
	LoaderID       string `json:"loaderId"`
	URL            string `json:"url"`
	SecurityOrigin string `json:"securityOrigin,omitempty"`
	MimeType       string `json:"mimeType,omitempty"`
}

type EventFrameAttached struct {
	FrameID       string `json:"frameId"`
	ParentFrameID string `json:"parentFrameId"`
}

type EventFrameDetached struct {
	FrameID string `json:"frameId"`
	Reason  string `json:"reason"`
}

type EventFrameNavigated struct {
	Frame Frame  `json:"frame"`
	Type  string `json:"type"`
}

type EventNavigatedWithinDocument struct {
	FrameID string `json:"frameId"`
	URL     string `json:"url"`
}

type EventFrameRequestedNavigation struct {
	FrameID string `json:"frameId"`
	URL     string `json:"url"`
	Reason  string `json:"reason"`
}

type EventFrameStartedNavigating struct {
	FrameID      string `json:"frameId"`
	URL          string `json:"url"`
	LoaderID     string `json:"loaderId"`
	NavigationType string `json:"navigationType,omitempty"`
}

type EventFrameStoppedLoading struct {
	FrameID string `json:"frameId"`
}

type EventLifecycleEvent struct {
	FrameID   string  `json:"frameId"`
	LoaderID  string  `json:"loaderId"`
	Name      string  `json:"name"`
	Timestamp float64 `json:"timestamp"`
}

type EventLoadEventFired struct {
	Timestamp float64 `json:"timestamp"`
}

type EventDomContentEventFired struct {
	Timestamp float64 `json:"timestamp"`
}

type EventJavascriptDialogOpening struct {
	URL     string `json:"url"`
	Message string `json:"message"`
	Type    string `json:"type"`
}

type NavigateParams struct {
	URL            string `json:"url"`
	Referrer       string `json:"referrer,omitempty"`
	TransitionType string `json:"transitionType,omitempty"`
	FrameID        string `json:"frameId,omitempty"`
}

type NavigateResult struct {
	FrameID   string `json:"frameId"`
	LoaderID  string `json:"loaderId,omitempty"`
	ErrorText string `json:"errorText,omitempty"`
}

type SetLifecycleEventsEnabledParams struct {
	Enabled bool `json:"enabled"`
}

type GetFrameTreeResult struct {
	FrameTree FrameTree `json:"frameTree"`
}

type FrameTree struct {
	Frame       Frame       `json:"frame"`
	ChildFrames []FrameTree `json:"childFrames,omitempty"`
}

type CaptureScreenshotParams struct {
	Format  string `json:"format,omitempty"`
	Quality int    `json:"quality,omitempty"`
}

type CaptureScreenshotResult struct {
	Data string `json:"data"`
}

// --- Runtime domain ---

type ExecutionContextDescription struct {
	ID      int64           `json:"id"`
	Origin  string          `json:"origin"`
	Name    string          `json:"name"`
	UniqueID string         `json:"uniqueId"`
	AuxData json.RawMessage `json:"auxData,omitempty"`
}

type ExecutionContextAuxData struct {
	FrameID   string `json:"frameId,omitempty"`
	IsDefault bool   `json:"isDefault,omitempty"`
	Type      string `json:"type,omitempty"`
}

type EventExecutionContextCreated struct {
	Context ExecutionContextDescription `json:"context"`
}

type EventExecutionContextDestroyed struct {
	ExecutionContextID int64  `json:"executionContextId"`
	ExecutionContextUniqueID string `json:"executionContextUniqueId,omitempty"`
}

type EventExecutionContextsCleared struct{}

type RemoteObject struct {
	Type                string          `json:"type"`
	Subtype             string          `json:"subtype,omitempty"`
	ClassName           string          `json:"className,omitempty"`
	Value               json.RawMessage `json:"value,omitempty"`
	UnserializableValue string          `json:"unserializableValue,omitempty"`
	Description         string          `json:"description,omitempty"`
	ObjectID            string          `json:"objectId,omitempty"`
}

type ExceptionDetails struct {
	ExceptionID  int64         `json:"exceptionId"`
	Text         string        `json:"text"`
	LineNumber   int           `json:"lineNumber"`
	ColumnNumber int           `json:"columnNumber"`
	ScriptID     string        `json:"scriptId,omitempty"`
	Exception    *RemoteObject `json:"exception,omitempty"`
}

type EvaluateParams struct {
	Expression            string `json:"expression"`
	ContextID              int64  `json:"contextId,omitempty"`
	ReturnByValue          bool   `json:"returnByValue,omitempty"`
	AwaitPromise           bool   `json:"awaitPromise,omitempty"`
	UserGesture            bool   `json:"userGesture,omitempty"`
	UniqueContextID        string `json:"uniqueContextId,omitempty"`
	GeneratePreview        bool   `json:"generatePreview,omitempty"`
}

type EvaluateResult struct {
	Result           RemoteObject      `json:"result"`
	ExceptionDetails *ExceptionDetails `json:"exceptionDetails,omitempty"`
}

type CallArgument struct {
	Value               json.RawMessage `json:"value,omitempty"`
	UnserializableValue string          `json:"unserializableValue,omitempty"`
	ObjectID            string          `json:"objectId,omitempty"`
}

type CallFunctionOnParams struct {
	FunctionDeclaration string         `json:"functionDeclaration"`
	ObjectID            string         `json:"objectId,omitempty"`
	Arguments           []CallArgument `json:"arguments,omitempty"`
	ReturnByValue        bool          `json:"returnByValue,omitempty"`
	AwaitPromise         bool          `json:"awaitPromise,omitempty"`
	UserGesture          bool          `json:"userGesture,omitempty"`
	ExecutionContextID   int64         `json:"executionContextId,omitempty"`
	UniqueContextID      string        `json:"uniqueContextId,omitempty"`
}

type CallFunctionOnResult struct {
	Result           RemoteObject      `json:"result"`
	ExceptionDetails *ExceptionDetails `json:"exceptionDetails,omitempty"`
}

type ReleaseObjectParams struct {
	ObjectID string `json:"objectId"`
}

type AddBindingParams struct {
	Name               string `json:"name"`
	ExecutionContextID int64  `json:"executionContextId,omitempty"`
}

type EventBindingCalled struct {
	Name    string `json:"name"`
	Payload string `json:"payload"`
	ExecutionContextID int64 `json:"executionContextId"`
}

type EventConsoleAPICalled struct {
	Type               string         `json:"type"`
	Args               []RemoteObject `json:"args"`
	ExecutionContextID int64          `json:"executionContextId"`
	Timestamp          float64        `json:"timestamp"`
}

type EventExceptionThrown struct {
	Timestamp        float64          `json:"timestamp"`
	ExceptionDetails ExceptionDetails `json:"exceptionDetails"`
}

// --- Network domain ---

type Request struct {
	URL         string            `json:"url"`
	Method      string            `json:"method"`
	Headers     map[string]string `json:"headers,omitempty"`
	PostData    string            `json:"postData,omitempty"`
	HasPostData bool              `json:"hasPostData,omitempty"`
}

type Response struct {
	URL        string            `json:"url"`
	Status     int               `json:"status"`
	StatusText string            `json:"statusText"`
	Headers    map[string]string `json:"headers"`
	MimeType   string            `json:"mimeType"`
	FromDiskCache bool           `json:"fromDiskCache,omitempty"`
	Protocol   string            `json:"protocol,omitempty"`
}

type EventRequestWillBeSent struct {
	RequestID        string   `json:"requestId"`
	LoaderID         string   `json:"loaderId"`
	DocumentURL      string   `json:"documentURL"`
	Request          Request  `json:"request"`
	Timestamp        float64  `json:"timestamp"`
	WallTime         float64  `json:"wallTime"`
	Type             string   `json:"type,omitempty"`
	FrameID          string   `json:"frameId,omitempty"`
	RedirectResponse *Response `json:"redirectResponse,omitempty"`
	HasUserGesture   bool     `json:"hasUserGesture,omitempty"`
}

type EventRequestWillBeSentExtraInfo struct {
	RequestID          string            `json:"requestId"`
	AssociatedCookies   []json.RawMessage `json:"associatedCookies,omitempty"`
	Headers             map[string]string `json:"headers"`
}

type EventResponseReceived struct {
	RequestID string   `json:"requestId"`
	LoaderID  string   `json:"loaderId"`
	Timestamp float64  `json:"timestamp"`
	Type      string   `json:"type,omitempty"`
	Response  Response `json:"response"`
	FrameID   string   `json:"frameId,omitempty"`
	HasExtraInfo bool  `json:"hasExtraInfo,omitempty"`
}

type EventResponseReceivedExtraInfo struct {
	RequestID string            `json:"requestId"`
	Headers   map[string]string `json:"headers"`
	StatusCode int              `json:"statusCode,omitempty"`
}

type EventLoadingFinished struct {
	RequestID string  `json:"requestId"`
	Timestamp float64 `json:"timestamp"`
	EncodedDataLength float64 `json:"encodedDataLength"`
}

type EventLoadingFailed struct {
	RequestID     string  `json:"requestId"`
	Timestamp     float64 `json:"timestamp"`
	Type          string  `json:"type,omitempty"`
	ErrorText     string  `json:"errorText"`
	Canceled      bool    `json:"canceled,omitempty"`
}

type EventRequestServedFromCache struct {
	RequestID string `json:"requestId"`
}

type SetCacheDisabledParams struct {
	CacheDisabled bool `json:"cacheDisabled"`
}

type SetExtraHTTPHeadersParams struct {
	Headers map[string]string `json:"headers"`
}

// --- Fetch domain ---

type RequestPattern struct {
	URLPattern        string `json:"urlPattern,omitempty"`
	RequestStage      string `json:"requestStage,omitempty"`
	ResourceType      string `json:"resourceType,omitempty"`
}

type FetchEnableParams struct {
	Patterns           []RequestPattern `json:"patterns,omitempty"`
	HandleAuthRequests bool             `json:"handleAuthRequests,omitempty"`
}

type HeaderEntry struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type EventRequestPaused struct {
	RequestID          string    `json:"requestId"`
	Request            Request   `json:"request"`
	FrameID             string   `json:"frameId"`
	ResourceType        string   `json:"resourceType"`
	ResponseErrorReason string   `json:"responseErrorReason,omitempty"`
	ResponseStatusCode  int      `json:"responseStatusCode,omitempty"`
	ResponseHeaders     []HeaderEntry `json:"responseHeaders,omitempty"`
	NetworkID           string   `json:"networkId,omitempty"`
}

type AuthChallenge struct {
	Source string `json:"source,omitempty"`
	Origin string `json:"origin"`
	Scheme string `json:"scheme"`
	Realm  string `json:"realm"`
}

type EventAuthRequired struct {
	RequestID     string        `json:"requestId"`
	Request       Request       `json:"request"`
	FrameID       string        `json:"frameId"`
	ResourceType  string        `json:"resourceType"`
	AuthChallenge AuthChallenge `json:"authChallenge"`
}

type ContinueRequestParams struct {
	RequestID string        `json:"requestId"`
	URL       string        `json:"url,omitempty"`
	Method    string        `json:"method,omitempty"`
	PostData  string        `json:"postData,omitempty"`
	Headers   []HeaderEntry `json:"headers,omitempty"`
}

type ContinueResponseParams struct {
	RequestID           string        `json:"requestId"`
	ResponseCode        int           `json:"responseCode,omitempty"`
	ResponsePhrase       string       `json:"responsePhrase,omitempty"`
	ResponseHeaders      []HeaderEntry `json:"responseHeaders,omitempty"`
}

type FailRequestParams struct {
	RequestID   string `json:"requestId"`
	ErrorReason string `json:"errorReason"`
}

type FulfillRequestParams struct {
	RequestID      string        `json:"requestId"`
	ResponseCode   int           `json:"responseCode"`
	ResponseHeaders []HeaderEntry `json:"responseHeaders,omitempty"`
	Body           string        `json:"body,omitempty"`
}

type AuthChallengeResponse struct {
	Response string `json:"response"`
	Username string `json:"username,omitempty"`
	Password string `json:"password,omitempty"`
}

type ContinueWithAuthParams struct {
	RequestID             string                `json:"requestId"`
	AuthChallengeResponse AuthChallengeResponse `json:"authChallengeResponse"`
}

// --- Input domain ---

type DispatchMouseEventParams struct {
	Type       string  `json:"type"`
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Modifiers  int     `json:"modifiers,omitempty"`
	Timestamp  float64 `json:"timestamp,omitempty"`
	Button     string  `json:"button,omitempty"`
	Buttons    int     `json:"buttons,omitempty"`
	ClickCount int     `json:"clickCount,omitempty"`
	Force      float64 `json:"force,omitempty"`
	PointerType string `json:"pointerType,omitempty"`
}

type DispatchKeyEventParams struct {
	Type                  string `json:"type"`
	Modifiers             int    `json:"modifiers,omitempty"`
	Timestamp             float64 `json:"timestamp,omitempty"`
	Text                  string `json:"text,omitempty"`
	UnmodifiedText        string `json:"unmodifiedText,omitempty"`
	KeyIdentifier         string `json:"keyIdentifier,omitempty"`
	Code                  string `json:"code,omitempty"`
	Key                   string `json:"key,omitempty"`
	WindowsVirtualKeyCode int    `json:"windowsVirtualKeyCode,omitempty"`
	NativeVirtualKeyCode  int    `json:"nativeVirtualKeyCode,omitempty"`
	Commands              []string `json:"commands,omitempty"`
}

type DispatchMouseWheelEventParams struct {
	Type      string  `json:"type"`
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	DeltaX    float64 `json:"deltaX"`
	DeltaY    float64 `json:"deltaY"`
	Modifiers int     `json:"modifiers,omitempty"`
}

type InsertTextParams struct {
	Text string `json:"text"`
}

// --- Log domain ---

type LogEntry struct {
	Source    string  `json:"source"`
	Level     string  `json:"level"`
	Text      string  `json:"text"`
	Timestamp float64 `json:"timestamp"`
	URL       string  `json:"url,omitempty"`
	StackTrace json.RawMessage `json:"stackTrace,omitempty"`
}

type EventEntryAdded struct {
	Entry LogEntry `json:"entry"`
}

// --- DOM domain ---

type GetBoxModelParams struct {
	ObjectID string `json:"objectId,omitempty"`
	NodeID   int64  `json:"nodeId,omitempty"`
}

type BoxModel struct {
	Content []float64 `json:"content"`
	Width   int       `json:"width"`
	Height  int       `json:"height"`
}

type GetBoxModelResult struct {
	Model BoxModel `json:"model"`
}

type ResolveNodeParams struct {
	BackendNodeID int64  `json:"backendNodeId,omitempty"`
	ObjectID      string `json:"objectId,omitempty"`
}

type ResolveNodeResult struct {
	Object RemoteObject `json:"object"`
}

// --- Browser domain ---

type GetVersionResult struct {
	Product         string `json:"product"`
	Revision        string `json:"revision"`
	UserAgent       string `json:"userAgent"`
	JsVersion       string `json:"jsVersion"`
}

type CreateBrowserContextParams struct {
	DisposeOnDetach bool `json:"disposeOnDetach,omitempty"`
}

type CreateBrowserContextResult struct {
	BrowserContextID string `json:"browserContextId"`
}

type DisposeBrowserContextParams struct {
	BrowserContextID string `json:"browserContextId"`
}

type SetPermissionParams struct {
	Permission       PermissionDescriptor `json:"permission"`
	Setting          string               `json:"setting"`
	Origin           string               `json:"origin,omitempty"`
	BrowserContextID string               `json:"browserContextId,omitempty"`
}

type PermissionDescriptor struct {
	Name string `json:"name"`
}

// --- Storage domain ---

type Cookie struct {
	Name     string  `json:"name"`
	Value    string  `json:"value"`
	Domain   string  `json:"domain"`
	Path     string  `json:"path"`
	Expires  float64 `json:"expires,omitempty"`
	HTTPOnly bool    `json:"httpOnly,omitempty"`
	Secure   bool    `json:"secure,omitempty"`
	SameSite string  `json:"sameSite,omitempty"`
}

type GetCookiesParams struct {
	Urls             []string `json:"urls,omitempty"`
	BrowserContextID string   `json:"browserContextId,omitempty"`
}

type GetCookiesResult struct {
	Cookies []Cookie `json:"cookies"`
}

type SetCookieParams struct {
	Cookie           Cookie `json:"cookie"`
	BrowserContextID string `json:"browserContextId,omitempty"`
}

// --- BluetoothEmulation domain ---

type SetSimulatedCentralStateParams struct {
	State string `json:"state"`
}
