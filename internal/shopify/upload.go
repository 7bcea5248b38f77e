package shopify

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// UploadParam is one form field the storage host requires. Params must be
// replayed verbatim and in order ahead of the file part.
type UploadParam struct {
	Name  string
	Value string
}

// UploadTarget is a reserved upload slot: where to send the bytes and the
// handle the asset will be registered under.
type UploadTarget struct {
	UploadURL   string
	ResourceURL string
	Params      []UploadParam
}

// Asset is the remote representation of an uploaded image.
type Asset struct {
	ID     string
	URL    string
	Status string
}

// DeleteResult reports an asset deletion. Resolved is true when the given id
// could not be deleted directly and the product's first current asset was
// substituted, a best-effort heuristic that may pick the wrong image on
// multi-image products.
type DeleteResult struct {
	Deleted  bool
	Resolved bool
	AssetID  string
}

// Image is the payload for one product-image operation.
type Image struct {
	Filename string
	MimeType string
	Data     []byte
	AltText  string
}

const stagedUploadsCreateMutation = `
mutation stagedUploadsCreate($input: [StagedUploadInput!]!) {
  stagedUploadsCreate(input: $input) {
    stagedTargets {
      url
      resourceUrl
      parameters { name value }
    }
    userErrors { field message }
  }
}`

// ReserveUpload asks the remote service for an upload slot for one file.
func (c *Client) ReserveUpload(ctx context.Context, filename, mimeType string, size int64) (*UploadTarget, error) {
	var result struct {
		StagedUploadsCreate struct {
			StagedTargets []struct {
				URL         string `json:"url"`
				ResourceURL string `json:"resourceUrl"`
				Parameters  []struct {
					Name  string `json:"name"`
					Value string `json:"value"`
				} `json:"parameters"`
			} `json:"stagedTargets"`
			UserErrors []userError `json:"userErrors"`
		} `json:"stagedUploadsCreate"`
	}

	variables := map[string]any{
		"input": []map[string]any{{
			"filename":   filename,
			"mimeType":   mimeType,
			"fileSize":   strconv.FormatInt(size, 10),
			"httpMethod": "POST",
			"resource":   "IMAGE",
		}},
	}
	if err := c.do(ctx, stagedUploadsCreateMutation, variables, &result); err != nil {
		return nil, err
	}
	if len(result.StagedUploadsCreate.UserErrors) > 0 {
		return nil, &APIError{Message: formatUserErrors(result.StagedUploadsCreate.UserErrors)}
	}
	if len(result.StagedUploadsCreate.StagedTargets) == 0 {
		return nil, &APIError{Message: "staged upload returned no targets"}
	}

	staged := result.StagedUploadsCreate.StagedTargets[0]
	target := &UploadTarget{
		UploadURL:   staged.URL,
		ResourceURL: staged.ResourceURL,
	}
	for _, p := range staged.Parameters {
		target.Params = append(target.Params, UploadParam{Name: p.Name, Value: p.Value})
	}
	return target, nil
}

// Transfer sends the file bytes to the reserved slot as a multipart form with
// the target's parameters replayed verbatim, file part last. Not retried:
// a failure aborts this single code's operation only.
func (c *Client) Transfer(ctx context.Context, target *UploadTarget, filename string, data []byte) error {
	if target == nil || strings.TrimSpace(target.UploadURL) == "" {
		return fmt.Errorf("upload target is required")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	fields := make([]*resty.MultipartField, 0, len(target.Params)+1)
	for _, p := range target.Params {
		fields = append(fields, &resty.MultipartField{
			Param:  p.Name,
			Reader: strings.NewReader(p.Value),
		})
	}
	fields = append(fields, &resty.MultipartField{
		Param:    "file",
		FileName: filename,
		Reader:   bytes.NewReader(data),
	})

	response, err := c.transfer.R().
		SetContext(ctx).
		SetMultipartFields(fields...).
		Post(target.UploadURL)
	if err != nil {
		return &APIError{
			Message:   "staged upload transfer failed",
			Transient: !isContextCanceled(err),
			Cause:     err,
		}
	}

	statusCode := response.StatusCode()
	if statusCode < http.StatusOK || statusCode >= http.StatusMultipleChoices {
		return &APIError{
			StatusCode: statusCode,
			Message:    fmt.Sprintf("staged upload transfer returned status %d", statusCode),
			Transient:  isTransientHTTPStatus(statusCode),
		}
	}
	return nil
}

const fileCreateMutation = `
mutation fileCreate($files: [FileCreateInput!]!) {
  fileCreate(files: $files) {
    files {
      id
      fileStatus
      preview { image { url } }
    }
    userErrors { field message }
  }
}`

// RegisterAsset turns a transferred staged resource into a standalone file
// asset. Product attachment is a separate step, see AttachAssetToProduct.
func (c *Client) RegisterAsset(ctx context.Context, resourceURL, altText string) (*Asset, error) {
	var result struct {
		FileCreate struct {
			Files []struct {
				ID         string `json:"id"`
				FileStatus string `json:"fileStatus"`
				Preview    *struct {
					Image *struct {
						URL string `json:"url"`
					} `json:"image"`
				} `json:"preview"`
			} `json:"files"`
			UserErrors []userError `json:"userErrors"`
		} `json:"fileCreate"`
	}

	file := map[string]any{
		"originalSource": resourceURL,
		"contentType":    "IMAGE",
	}
	if strings.TrimSpace(altText) != "" {
		file["alt"] = altText
	}
	if err := c.do(ctx, fileCreateMutation, map[string]any{"files": []map[string]any{file}}, &result); err != nil {
		return nil, err
	}
	if len(result.FileCreate.UserErrors) > 0 {
		return nil, &APIError{Message: formatUserErrors(result.FileCreate.UserErrors)}
	}
	if len(result.FileCreate.Files) == 0 {
		return nil, &APIError{Message: "file create returned no files"}
	}

	created := result.FileCreate.Files[0]
	asset := &Asset{ID: created.ID, Status: created.FileStatus}
	if created.Preview != nil && created.Preview.Image != nil {
		asset.URL = created.Preview.Image.URL
	}
	return asset, nil
}

const productCreateMediaMutation = `
mutation productCreateMedia($productId: ID!, $media: [CreateMediaInput!]!) {
  productCreateMedia(productId: $productId, media: $media) {
    media {
      id
      status
      preview { image { url } }
    }
    mediaUserErrors { field message }
  }
}`

// AttachAssetToProduct registers the transferred resource directly as product
// media and returns the created asset.
func (c *Client) AttachAssetToProduct(ctx context.Context, productID, resourceURL, altText string) (*Asset, error) {
	var result struct {
		ProductCreateMedia struct {
			Media []struct {
				ID      string `json:"id"`
				Status  string `json:"status"`
				Preview *struct {
					Image *struct {
						URL string `json:"url"`
					} `json:"image"`
				} `json:"preview"`
			} `json:"media"`
			MediaUserErrors []userError `json:"mediaUserErrors"`
		} `json:"productCreateMedia"`
	}

	variables := map[string]any{
		"productId": productID,
		"media": []map[string]any{{
			"originalSource":   resourceURL,
			"alt":              altText,
			"mediaContentType": "IMAGE",
		}},
	}
	if err := c.do(ctx, productCreateMediaMutation, variables, &result); err != nil {
		return nil, err
	}
	if len(result.ProductCreateMedia.MediaUserErrors) > 0 {
		return nil, &APIError{Message: formatUserErrors(result.ProductCreateMedia.MediaUserErrors)}
	}
	if len(result.ProductCreateMedia.Media) == 0 {
		return nil, &APIError{Message: "product media create returned no media"}
	}

	media := result.ProductCreateMedia.Media[0]
	asset := &Asset{ID: media.ID, Status: media.Status}
	if media.Preview != nil && media.Preview.Image != nil {
		asset.URL = media.Preview.Image.URL
	}
	return asset, nil
}

const mediaDeleteMutation = `
mutation productDeleteMedia($productId: ID!, $mediaIds: [ID!]!) {
  productDeleteMedia(productId: $productId, mediaIds: $mediaIds) {
    deletedMediaIds
    mediaUserErrors { field message }
  }
}`

const firstMediaQuery = `
query firstMedia($id: ID!) {
  product(id: $id) {
    media(first: 1) {
      edges { node { id } }
    }
  }
}`

const mediaIDPrefix = "gid://shopify/MediaImage/"

// DeleteAsset removes a product's asset. Ids in a legacy format cannot be
// deleted directly; the product's first current media id is resolved and
// deleted instead. Callers treat failures here as non-fatal during replace.
func (c *Client) DeleteAsset(ctx context.Context, productID, assetID string) (DeleteResult, error) {
	result := DeleteResult{AssetID: assetID}

	if !strings.HasPrefix(assetID, mediaIDPrefix) {
		resolved, err := c.firstMediaID(ctx, productID)
		if err != nil {
			return result, err
		}
		if resolved == "" {
			// Nothing attached; deletion is a no-op.
			return result, nil
		}
		c.logger.Warn("legacy asset id substituted with first current media",
			zap.String("productId", productID),
			zap.String("requestedAssetId", assetID),
			zap.String("resolvedAssetId", resolved),
		)
		result.Resolved = true
		result.AssetID = resolved
	}

	var mutationResult struct {
		ProductDeleteMedia struct {
			DeletedMediaIDs []string    `json:"deletedMediaIds"`
			MediaUserErrors []userError `json:"mediaUserErrors"`
		} `json:"productDeleteMedia"`
	}

	variables := map[string]any{
		"productId": productID,
		"mediaIds":  []string{result.AssetID},
	}
	if err := c.do(ctx, mediaDeleteMutation, variables, &mutationResult); err != nil {
		return result, err
	}
	if len(mutationResult.ProductDeleteMedia.MediaUserErrors) > 0 {
		return result, &APIError{Message: formatUserErrors(mutationResult.ProductDeleteMedia.MediaUserErrors)}
	}

	result.Deleted = len(mutationResult.ProductDeleteMedia.DeletedMediaIDs) > 0
	return result, nil
}

func (c *Client) firstMediaID(ctx context.Context, productID string) (string, error) {
	var result struct {
		Product *struct {
			Media struct {
				Edges []struct {
					Node struct {
						ID string `json:"id"`
					} `json:"node"`
				} `json:"edges"`
			} `json:"media"`
		} `json:"product"`
	}

	if err := c.do(ctx, firstMediaQuery, map[string]any{"id": productID}, &result); err != nil {
		return "", err
	}
	if result.Product == nil || len(result.Product.Media.Edges) == 0 {
		return "", nil
	}
	return result.Product.Media.Edges[0].Node.ID, nil
}

const variantAppendMediaMutation = `
mutation productVariantAppendMedia($productId: ID!, $variantMedia: [ProductVariantAppendMediaInput!]!) {
  productVariantAppendMedia(productId: $productId, variantMedia: $variantMedia) {
    userErrors { field message }
  }
}`

// BindAssetToVariant associates a created asset with a specific variant.
// Best-effort: some API versions reject this, and the asset stays valid at
// the product level, so callers log and continue on error.
func (c *Client) BindAssetToVariant(ctx context.Context, productID, variantID, assetID string) error {
	var result struct {
		ProductVariantAppendMedia struct {
			UserErrors []userError `json:"userErrors"`
		} `json:"productVariantAppendMedia"`
	}

	variables := map[string]any{
		"productId": productID,
		"variantMedia": []map[string]any{{
			"variantId": variantID,
			"mediaIds":  []string{assetID},
		}},
	}
	if err := c.do(ctx, variantAppendMediaMutation, variables, &result); err != nil {
		return err
	}
	if len(result.ProductVariantAppendMedia.UserErrors) > 0 {
		return &APIError{Message: formatUserErrors(result.ProductVariantAppendMedia.UserErrors)}
	}
	return nil
}

// AddProductImage runs the full reserve -> transfer -> attach protocol, then
// attempts the best-effort variant binding. Never deletes anything.
func (c *Client) AddProductImage(ctx context.Context, product *ProductVariant, img Image) (*Asset, error) {
	if product == nil {
		return nil, fmt.Errorf("product is required")
	}
	if len(img.Data) == 0 {
		return nil, fmt.Errorf("image payload is empty")
	}

	target, err := c.ReserveUpload(ctx, img.Filename, img.MimeType, int64(len(img.Data)))
	if err != nil {
		return nil, fmt.Errorf("reserve upload: %w", err)
	}

	if err := c.Transfer(ctx, target, img.Filename, img.Data); err != nil {
		return nil, fmt.Errorf("transfer upload: %w", err)
	}

	asset, err := c.AttachAssetToProduct(ctx, product.ProductID, target.ResourceURL, img.AltText)
	if err != nil {
		return nil, fmt.Errorf("register asset: %w", err)
	}

	if product.VariantID != "" {
		if err := c.BindAssetToVariant(ctx, product.ProductID, product.VariantID, asset.ID); err != nil {
			c.logger.Warn("variant media binding failed, asset remains at product level",
				zap.String("productId", product.ProductID),
				zap.String("variantId", product.VariantID),
				zap.String("assetId", asset.ID),
				zap.Error(err),
			)
		}
	}

	return asset, nil
}

// ReplaceProductImage deletes the product's prior asset, then runs the add
// protocol. Deletion is best-effort: a failure is logged and the new asset is
// still created.
func (c *Client) ReplaceProductImage(ctx context.Context, product *ProductVariant, img Image) (*Asset, error) {
	if product == nil {
		return nil, fmt.Errorf("product is required")
	}

	if product.CurrentAssetID != "" {
		deletion, err := c.DeleteAsset(ctx, product.ProductID, product.CurrentAssetID)
		if err != nil {
			c.logger.Warn("failed to delete superseded asset, continuing with upload",
				zap.String("productId", product.ProductID),
				zap.String("assetId", product.CurrentAssetID),
				zap.Error(err),
			)
		} else if deletion.Resolved {
			c.logger.Warn("superseded asset resolved via first-media heuristic",
				zap.String("productId", product.ProductID),
				zap.String("deletedAssetId", deletion.AssetID),
			)
		}
	}

	return c.AddProductImage(ctx, product, img)
}

// ResultingURL picks the URL to surface for a finished operation: the asset's
// served URL when available, the preview link for drafts, else the live URL.
func (c *Client) ResultingURL(ctx context.Context, product *ProductVariant, asset *Asset) string {
	if asset != nil && asset.URL != "" {
		return asset.URL
	}
	if product == nil {
		return ""
	}
	if product.IsDraft() {
		if link, err := c.PreviewLink(ctx, product.ProductID); err == nil && link != "" {
			return link
		}
	}
	if product.OnlineStoreURL != "" {
		return product.OnlineStoreURL
	}
	return c.LiveURL(product.Handle)
}
